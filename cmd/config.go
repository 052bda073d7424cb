package cmd

import (
	"time"

	"github.com/khanhnv2901/seca-snapshot/internal/checker"
	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultServerAddr      = "127.0.0.1:8080"
	defaultServerRateLimit = 10
	defaultServerRateBurst = 20
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Probe  ProbeConfig
	Scan   ScanConfig
	Server ServerConfig
}

// ProbeConfig holds the settings of both probes.
type ProbeConfig struct {
	CertTimeoutSecs     int
	HeaderTimeoutSecs   int
	SkipChainValidation bool
	MaxRedirects        int
}

// ScanConfig consolidates flag-driven settings for the scan command.
type ScanConfig struct {
	Concurrency int
	RateLimit   int
	Format      string
	Output      string
	Progress    bool
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Addr            string
	AuthToken       string
	CORSOrigins     []string
	RateLimit       int
	RateBurst       int
	TrustProxy      bool
	ShutdownTimeout time.Duration
}

type configOverrides struct {
	CertTimeoutSecs     *int
	HeaderTimeoutSecs   *int
	SkipChainValidation *bool
	MaxRedirects        *int
	ScanConcurrency     *int
	ScanRateLimit       *int
	ServerAddr          string
	ServerRateLimit     *int
	ServerRateBurst     *int
	ServerCORSOrigins   []string
	ServerTrustProxy    *bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Probe: ProbeConfig{
			CertTimeoutSecs:     int(consts.DefaultCertTimeout / time.Second),
			HeaderTimeoutSecs:   int(consts.DefaultHeaderTimeout / time.Second),
			SkipChainValidation: true,
			MaxRedirects:        consts.DefaultMaxRedirects,
		},
		Scan: ScanConfig{
			Concurrency: 4,
			RateLimit:   0,
			Format:      "text",
			Progress:    true,
		},
		Server: ServerConfig{
			Addr:            defaultServerAddr,
			RateLimit:       defaultServerRateLimit,
			RateBurst:       defaultServerRateBurst,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

func addProbeFlags(flags *pflag.FlagSet) {
	flags.IntVar(&cliConfig.Probe.CertTimeoutSecs, "cert-timeout", cliConfig.Probe.CertTimeoutSecs, "certificate probe timeout in seconds")
	flags.IntVar(&cliConfig.Probe.HeaderTimeoutSecs, "header-timeout", cliConfig.Probe.HeaderTimeoutSecs, "header probe timeout in seconds (redirects included)")
	flags.BoolVar(&cliConfig.Probe.SkipChainValidation, "skip-chain-validation", cliConfig.Probe.SkipChainValidation, "read certificates without verifying the chain (needed to report on expired or self-signed certificates)")
	flags.IntVar(&cliConfig.Probe.MaxRedirects, "max-redirects", cliConfig.Probe.MaxRedirects, "maximum redirects followed by the header probe")
}

func intOverride(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetInt(key)
	return &val
}

func boolOverride(key string) *bool {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetBool(key)
	return &val
}

func loadConfigOverrides() configOverrides {
	overrides := configOverrides{
		CertTimeoutSecs:     intOverride("probe.cert_timeout_secs"),
		HeaderTimeoutSecs:   intOverride("probe.header_timeout_secs"),
		SkipChainValidation: boolOverride("probe.skip_chain_validation"),
		MaxRedirects:        intOverride("probe.max_redirects"),
		ScanConcurrency:     intOverride("scan.concurrency"),
		ScanRateLimit:       intOverride("scan.rate_limit"),
		ServerRateLimit:     intOverride("server.rate_limit"),
		ServerRateBurst:     intOverride("server.rate_burst"),
		ServerTrustProxy:    boolOverride("server.trust_proxy"),
	}

	if viper.IsSet("server.addr") {
		overrides.ServerAddr = viper.GetString("server.addr")
	}
	if viper.IsSet("server.cors_origins") {
		overrides.ServerCORSOrigins = viper.GetStringSlice("server.cors_origins")
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadConfigOverrides()
	probeFlags := rootCmd.PersistentFlags()

	if overrides.CertTimeoutSecs != nil {
		applyIntDefault(probeFlags, "cert-timeout", *overrides.CertTimeoutSecs, func(v int) {
			cliConfig.Probe.CertTimeoutSecs = v
		})
	}
	if overrides.HeaderTimeoutSecs != nil {
		applyIntDefault(probeFlags, "header-timeout", *overrides.HeaderTimeoutSecs, func(v int) {
			cliConfig.Probe.HeaderTimeoutSecs = v
		})
	}
	if overrides.SkipChainValidation != nil {
		applyBoolDefault(probeFlags, "skip-chain-validation", *overrides.SkipChainValidation, func(v bool) {
			cliConfig.Probe.SkipChainValidation = v
		})
	}
	if overrides.MaxRedirects != nil {
		applyIntDefault(probeFlags, "max-redirects", *overrides.MaxRedirects, func(v int) {
			cliConfig.Probe.MaxRedirects = v
		})
	}

	if overrides.ScanConcurrency != nil {
		applyIntDefault(scanCmd.Flags(), "concurrency", *overrides.ScanConcurrency, func(v int) {
			cliConfig.Scan.Concurrency = v
		})
	}
	if overrides.ScanRateLimit != nil {
		applyIntDefault(scanCmd.Flags(), "rate-limit", *overrides.ScanRateLimit, func(v int) {
			cliConfig.Scan.RateLimit = v
		})
	}

	if overrides.ServerAddr != "" {
		setStringFlagIfUnset(serveCmd.Flags(), "addr", overrides.ServerAddr)
	}
	if overrides.ServerRateLimit != nil {
		applyIntDefault(serveCmd.Flags(), "rate-limit", *overrides.ServerRateLimit, func(v int) {
			cliConfig.Server.RateLimit = v
		})
	}
	if overrides.ServerRateBurst != nil {
		applyIntDefault(serveCmd.Flags(), "rate-burst", *overrides.ServerRateBurst, func(v int) {
			cliConfig.Server.RateBurst = v
		})
	}
	if overrides.ServerTrustProxy != nil {
		applyBoolDefault(serveCmd.Flags(), "trust-proxy", *overrides.ServerTrustProxy, func(v bool) {
			cliConfig.Server.TrustProxy = v
		})
	}
	if len(overrides.ServerCORSOrigins) > 0 {
		if flag := serveCmd.Flags().Lookup("cors-origins"); flag == nil || !flag.Changed {
			cliConfig.Server.CORSOrigins = overrides.ServerCORSOrigins
		}
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}

// newProbes builds the certificate and header probes from the probe settings.
func newProbes(cfg ProbeConfig) (*checker.CertificateInspector, *checker.HeaderAuditor) {
	inspector := checker.NewCertificateInspector()
	if cfg.CertTimeoutSecs > 0 {
		inspector.Timeout = time.Duration(cfg.CertTimeoutSecs) * time.Second
	}
	inspector.SkipChainValidation = cfg.SkipChainValidation

	auditor := checker.NewHeaderAuditor()
	if cfg.HeaderTimeoutSecs > 0 {
		auditor.Timeout = time.Duration(cfg.HeaderTimeoutSecs) * time.Second
	}
	if cfg.MaxRedirects >= 0 {
		auditor.MaxRedirects = cfg.MaxRedirects
	}
	return inspector, auditor
}

// newScanner is swapped out in tests to avoid network probes.
var newScanner = func(cfg ProbeConfig) *checker.Scanner {
	certs, headers := newProbes(cfg)
	return checker.NewScanner(certs, headers, getLogger())
}
