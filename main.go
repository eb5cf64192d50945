package main

import "github.com/kilnhq/kiln/internal/cmd"

func main() {
	cmd.Execute()
}
