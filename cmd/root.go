package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var logLevel string
var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "seca-snapshot",
	Short: "Quick TLS certificate and security header snapshot for a website",
	Long: `seca-snapshot probes a site's TLS certificate and HTTP security headers and
turns the facts into a short plain-language report. Only scan sites you are
authorized to test.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// persistentPreRun loads config and env overrides and builds the logger.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	// init config
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".seca-snapshot")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("SECA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	// init logger
	l, err := newLogger(logLevel, loadLogFileConfig(cmd))
	if err != nil {
		return err
	}
	logger = l

	applyConfigDefaults(cmd)
	return nil
}

// getLogger returns the command logger, or a no-op logger before init.
func getLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("error:"), err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentPreRunE = persistentPreRun

	// config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-snapshot.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "also write JSON logs to this file, rotated by size")

	addProbeFlags(rootCmd.PersistentFlags())

	// add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
