package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileConfig controls the optional rotating log file.
type LogFileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// loadLogFileConfig reads --log-file, falling back to log.* config keys.
func loadLogFileConfig(cmd *cobra.Command) LogFileConfig {
	cfg := LogFileConfig{
		Path:       viper.GetString("log.file"),
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
	if flag := cmd.Flags().Lookup("log-file"); flag != nil && flag.Changed {
		cfg.Path = flag.Value.String()
	}
	if viper.IsSet("log.max_size_mb") {
		cfg.MaxSizeMB = viper.GetInt("log.max_size_mb")
	}
	if viper.IsSet("log.max_backups") {
		cfg.MaxBackups = viper.GetInt("log.max_backups")
	}
	if viper.IsSet("log.max_age_days") {
		cfg.MaxAgeDays = viper.GetInt("log.max_age_days")
	}
	cfg.Compress = viper.GetBool("log.compress")
	return cfg
}

// newLogger builds a production zap logger writing to stderr at the given
// level, teeing into a lumberjack-rotated file when one is configured.
func newLogger(level string, file LogFileConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if file.Path == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(rotator),
		cfg.Level,
	)
	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
