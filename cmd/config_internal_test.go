package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("timeout", 0, "")

	var applied int
	applyIntDefault(flags, "timeout", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("timeout", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "timeout", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyBoolDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("skip-chain-validation", true, "")

	applied := true
	applyBoolDefault(flags, "skip-chain-validation", false, func(v bool) {
		applied = v
	})
	if applied {
		t.Fatal("expected setter to run with false")
	}

	if err := flags.Set("skip-chain-validation", "true"); err != nil {
		t.Fatalf("failed to set bool flag: %v", err)
	}
	applied = true
	applyBoolDefault(flags, "skip-chain-validation", false, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatalf("setter should not change value when flag already set")
	}
}

func TestSetStringFlagIfUnset(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")

	setStringFlagIfUnset(flags, "addr", "0.0.0.0:9000")
	if got := flags.Lookup("addr").Value.String(); got != "0.0.0.0:9000" {
		t.Fatalf("expected addr to be default, got %s", got)
	}

	if err := flags.Set("addr", "127.0.0.1:1234"); err != nil {
		t.Fatalf("failed to set addr: %v", err)
	}
	setStringFlagIfUnset(flags, "addr", "0.0.0.0:9999")
	if got := flags.Lookup("addr").Value.String(); got != "127.0.0.1:1234" {
		t.Fatalf("expected addr to remain user-provided, got %s", got)
	}
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()
	if cfg.Probe.CertTimeoutSecs != 8 {
		t.Fatalf("unexpected certificate timeout default: %d", cfg.Probe.CertTimeoutSecs)
	}
	if cfg.Probe.HeaderTimeoutSecs != 10 {
		t.Fatalf("unexpected header timeout default: %d", cfg.Probe.HeaderTimeoutSecs)
	}
	if !cfg.Probe.SkipChainValidation {
		t.Fatal("expected chain validation to be skipped by default")
	}
	if cfg.Scan.Format != "text" {
		t.Fatalf("unexpected format default: %s", cfg.Scan.Format)
	}
	if cfg.Server.Addr != defaultServerAddr || cfg.Server.RateLimit != defaultServerRateLimit || cfg.Server.RateBurst != defaultServerRateBurst {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("probe.cert_timeout_secs", 3)
	viper.Set("probe.skip_chain_validation", false)
	viper.Set("scan.concurrency", 8)
	viper.Set("server.addr", "0.0.0.0:9090")
	viper.Set("server.cors_origins", []string{"https://app.example.com"})

	overrides := loadConfigOverrides()

	if overrides.CertTimeoutSecs == nil || *overrides.CertTimeoutSecs != 3 {
		t.Fatalf("expected cert timeout override 3, got %+v", overrides.CertTimeoutSecs)
	}
	if overrides.SkipChainValidation == nil || *overrides.SkipChainValidation {
		t.Fatalf("expected skip chain validation override false, got %+v", overrides.SkipChainValidation)
	}
	if overrides.ScanConcurrency == nil || *overrides.ScanConcurrency != 8 {
		t.Fatalf("expected concurrency override 8, got %+v", overrides.ScanConcurrency)
	}
	if overrides.HeaderTimeoutSecs != nil {
		t.Fatalf("expected no header timeout override, got %v", *overrides.HeaderTimeoutSecs)
	}
	if overrides.ServerAddr != "0.0.0.0:9090" {
		t.Fatalf("expected addr override, got %s", overrides.ServerAddr)
	}
	if len(overrides.ServerCORSOrigins) != 1 {
		t.Fatalf("expected one CORS origin, got %v", overrides.ServerCORSOrigins)
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		*cliConfig = *newCLIConfig()
		_ = serveCmd.Flags().Set("addr", defaultServerAddr)
		serveCmd.Flags().Lookup("addr").Changed = false
	})

	*cliConfig = *newCLIConfig()

	viper.Set("probe.header_timeout_secs", 4)
	viper.Set("probe.max_redirects", 2)
	viper.Set("scan.rate_limit", 5)
	viper.Set("server.rate_burst", 50)
	viper.Set("server.addr", "0.0.0.0:9090")
	viper.Set("server.trust_proxy", true)

	// Reset flag state to simulate untouched CLI flags.
	for _, flag := range []*pflag.Flag{
		rootCmd.PersistentFlags().Lookup("header-timeout"),
		rootCmd.PersistentFlags().Lookup("max-redirects"),
		scanCmd.Flags().Lookup("rate-limit"),
		serveCmd.Flags().Lookup("rate-burst"),
		serveCmd.Flags().Lookup("addr"),
		serveCmd.Flags().Lookup("trust-proxy"),
	} {
		if flag != nil {
			flag.Changed = false
		}
	}

	applyConfigDefaults(&cobra.Command{Use: "root"})

	if cliConfig.Probe.HeaderTimeoutSecs != 4 {
		t.Fatalf("expected header timeout 4, got %d", cliConfig.Probe.HeaderTimeoutSecs)
	}
	if cliConfig.Probe.MaxRedirects != 2 {
		t.Fatalf("expected max redirects 2, got %d", cliConfig.Probe.MaxRedirects)
	}
	if cliConfig.Scan.RateLimit != 5 {
		t.Fatalf("expected scan rate limit 5, got %d", cliConfig.Scan.RateLimit)
	}
	if cliConfig.Server.RateBurst != 50 {
		t.Fatalf("expected rate burst 50, got %d", cliConfig.Server.RateBurst)
	}
	if !cliConfig.Server.TrustProxy {
		t.Fatal("expected trust proxy from config")
	}
	if got := serveCmd.Flags().Lookup("addr").Value.String(); got != "0.0.0.0:9090" {
		t.Fatalf("expected addr flag to be set by config, got %s", got)
	}
}

func TestApplyConfigDefaultsRespectsFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("cert-timeout")
	t.Cleanup(func() {
		viper.Reset()
		*cliConfig = *newCLIConfig()
		flag.Changed = false
	})

	*cliConfig = *newCLIConfig()
	viper.Set("probe.cert_timeout_secs", 30)

	if err := rootCmd.PersistentFlags().Set("cert-timeout", "2"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyConfigDefaults(&cobra.Command{Use: "root"})

	if cliConfig.Probe.CertTimeoutSecs != 2 {
		t.Fatalf("explicit flag should win over config, got %d", cliConfig.Probe.CertTimeoutSecs)
	}
}

func TestNewProbes(t *testing.T) {
	inspector, auditor := newProbes(ProbeConfig{CertTimeoutSecs: 3, HeaderTimeoutSecs: 4, SkipChainValidation: false, MaxRedirects: 2})

	if inspector.Timeout != 3*time.Second || inspector.SkipChainValidation {
		t.Fatalf("unexpected inspector %+v", inspector)
	}
	if auditor.Timeout != 4*time.Second || auditor.MaxRedirects != 2 {
		t.Fatalf("unexpected auditor %+v", auditor)
	}
}
