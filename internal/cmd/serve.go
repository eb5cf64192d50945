package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kilnhq/kiln/internal/server"
	"github.com/kilnhq/kiln/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload-to-report workflow over HTTP",
	Long: `Start the Kiln web server. Uploaded log files are parsed,
aggregated and rendered into report sessions that can be browsed,
downloaded as a bundle, and followed live over WebSocket.

Examples:
  kiln serve
  kiln serve --port 9090 --data-dir /var/lib/kiln
  kiln serve --session-ttl 72h --cleanup-interval 30m`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "8080", "HTTP listen port")
	serveCmd.Flags().String("data-dir", "kiln-data", "directory for session artifacts")
	serveCmd.Flags().Int64("max-upload-bytes", server.DefaultMaxUploadBytes, "upload size limit in bytes")
	serveCmd.Flags().Duration("session-ttl", 7*24*time.Hour, "age after which sessions are purged (0 keeps them forever)")
	serveCmd.Flags().Duration("cleanup-interval", time.Hour, "how often expired sessions are purged")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("data_dir", serveCmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("max_upload_bytes", serveCmd.Flags().Lookup("max-upload-bytes"))
	viper.BindPFlag("session_ttl", serveCmd.Flags().Lookup("session-ttl"))
	viper.BindPFlag("cleanup_interval", serveCmd.Flags().Lookup("cleanup-interval"))
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	store, err := session.NewStore(viper.GetString("data_dir"), viper.GetDuration("session_ttl"), log)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	srv := server.New(store, log, server.Config{
		Port:           viper.GetString("port"),
		MaxUploadBytes: viper.GetInt64("max_upload_bytes"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n🔥 Kiln shutting down...")
		cancel()
	}()

	go store.RunCleaner(ctx, viper.GetDuration("cleanup_interval"))

	fmt.Fprintf(os.Stderr, "🔥 Kiln serving on http://localhost:%s\n", viper.GetString("port"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
