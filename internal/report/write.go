package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteDir writes every artifact of a report into dir, creating the
// directory if needed.
func WriteDir(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	for _, a := range r.Artifacts {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Bytes, 0644); err != nil {
			return fmt.Errorf("write artifact %s: %w", a.Name, err)
		}
	}
	return nil
}
