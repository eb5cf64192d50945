package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	outputFmt string
	debugMode bool
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Kiln: bake structured logs into reports",
	Long: `Kiln turns structured log files into visual reports.
It parses CSV, JSON and TXT result logs, aggregates success rates per
model and category, and renders charts, a summary table and an HTML
report. Run it once per file, keep it watching a directory, or serve
the whole workflow over HTTP.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.kiln.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "terminal output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "verbose development logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".kiln")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("kiln")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// newLogger builds the process logger. Debug mode switches to the
// human-readable development encoder.
func newLogger() (*zap.Logger, error) {
	if debugMode {
		return zap.NewDevelopmentConfig().Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
