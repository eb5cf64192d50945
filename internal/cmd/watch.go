package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kilnhq/kiln/internal/pipeline"
	"github.com/kilnhq/kiln/internal/watch"
)

var (
	watchOut      string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [patterns...]",
	Short: "Watch log files and re-render reports on change",
	Long: `Watch one or more log files (or glob patterns) and keep their
reports up to date. Every matched file gets its own report directory
under the output root; the summary table is reprinted after each render.

Examples:
  kiln watch results.csv
  kiln watch "runs/**/*.json"
  kiln watch results.csv runs/*.txt --out reports --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatchCmd,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchOut, "out", "kiln-report", "root directory for report output")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "quiet period before re-rendering a changed file")
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	// --- Set up context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n🔥 Kiln shutting down...")
		cancel()
	}()

	// --- Initialize watcher ---
	w, err := watch.New(args, log)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	watched := w.Paths()
	if len(watched) == 0 {
		return fmt.Errorf("no files matched the given patterns: %v", args)
	}

	fmt.Fprintf(os.Stderr, "🔥 Kiln watching %d file(s):\n", len(watched))
	for _, p := range watched {
		fmt.Fprintf(os.Stderr, "   • %s\n", p)
	}
	fmt.Fprintln(os.Stderr)

	// --- Initialize runner ---
	renderer := newRenderer()
	runner := watch.NewRunner(w, watchOut, watchDebounce, log, func(path string, res *pipeline.Result) {
		if err := renderer.Render(res.Summary); err != nil {
			log.Warn("render summary", zap.Error(err))
		}
	})

	// --- Start pipeline ---
	go w.Start(ctx)
	runner.Start(ctx)

	return nil
}
