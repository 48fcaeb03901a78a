package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/szymon/internal/calendar"
	"github.com/teemow/szymon/internal/config"
	"github.com/teemow/szymon/internal/google"
	"github.com/teemow/szymon/internal/instrumentation"
	"github.com/teemow/szymon/internal/logging"
	"github.com/teemow/szymon/internal/server"
	"github.com/teemow/szymon/internal/tasks"
)

// serveFlags holds the flag values of the serve command. A flag only
// overrides the configuration when it was set on the command line.
type serveFlags struct {
	configPath string

	debug       bool
	host        string
	port        int
	baseURL     string
	frontendURL string
	frontendDir string
	faviconFile string
	logFormat   string

	googleClientID     string
	googleClientSecret string
	googleRedirectURL  string
	tokenFile          string

	tls         bool
	tlsCertFile string
	tlsKeyFile  string
	mkcertBin   string

	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	return serveCommand(&serveFlags{})
}

func serveCommand(f *serveFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		Long: `Start the HTTP gateway for Google Tasks and Google Calendar.

Configuration is layered, later sources win:
  built-in defaults
  YAML file from --config or SZYMON_CONFIG
  environment (GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, PORT, ...)
  flags given on the command line

Without GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET the gateway still starts,
but every Tasks and Calendar endpoint answers 503.

Sign in by opening /api/tasks/auth/login in a browser. The token is stored
in the token file (encrypted when TOKEN_ENCRYPTION_KEY is set) and
refreshed automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f, os.LookupEnv)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to a YAML config file. Can also use SZYMON_CONFIG env var.")
	fl.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fl.StringVar(&f.host, "host", config.DefaultHost, "Address to listen on")
	fl.IntVar(&f.port, "port", config.DefaultPort, "Port to listen on")
	fl.StringVar(&f.baseURL, "base-url", "", "Public URL of the gateway. Defaults to https://localhost:<port>")
	fl.StringVar(&f.frontendURL, "frontend-url", "", "URL to send the browser to after sign-in. Empty shows a page that closes itself")
	fl.StringVar(&f.frontendDir, "frontend-dir", "", "Directory with the built frontend to host")
	fl.StringVar(&f.faviconFile, "favicon-file", "", "Favicon to serve instead of the built-in one")
	fl.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "Log format: json or text")

	fl.StringVar(&f.googleClientID, "google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	fl.StringVar(&f.googleClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	fl.StringVar(&f.googleRedirectURL, "google-redirect-url", "", "OAuth redirect URL. Defaults to <base-url>/api/tasks/auth/callback")
	fl.StringVar(&f.tokenFile, "token-file", config.DefaultTokenFile, "Where the Google token is stored")

	fl.BoolVar(&f.tls, "tls", true, "Serve HTTPS, creating a certificate with mkcert when missing")
	fl.StringVar(&f.tlsCertFile, "tls-cert-file", config.DefaultCertFile, "TLS certificate (PEM)")
	fl.StringVar(&f.tlsKeyFile, "tls-key-file", config.DefaultKeyFile, "TLS private key (PEM)")
	fl.StringVar(&f.mkcertBin, "mkcert-bin", config.DefaultMkcertBin, "mkcert executable")

	fl.BoolVar(&f.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	fl.StringVar(&f.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadConfig builds the effective configuration: defaults, file and
// environment from the config package, then explicitly set flags.
func loadConfig(cmd *cobra.Command, f *serveFlags, lookup config.LookupFunc) (*config.Config, error) {
	cfg, err := config.LoadWith(f.configPath, lookup)
	if err != nil {
		return nil, err
	}
	f.apply(cmd.Flags().Changed, cfg)

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *serveFlags) apply(changed func(string) bool, cfg *config.Config) {
	setString := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if changed(name) {
			*dst = v
		}
	}

	setBool("debug", &cfg.Debug, f.debug)
	setString("host", &cfg.Host, f.host)
	if changed("port") {
		cfg.Port = f.port
	}
	setString("base-url", &cfg.BaseURL, f.baseURL)
	setString("frontend-url", &cfg.FrontendURL, f.frontendURL)
	setString("frontend-dir", &cfg.FrontendDir, f.frontendDir)
	setString("favicon-file", &cfg.FaviconFile, f.faviconFile)
	setString("log-format", &cfg.LogFormat, f.logFormat)

	setString("google-client-id", &cfg.Google.ClientID, f.googleClientID)
	setString("google-client-secret", &cfg.Google.ClientSecret, f.googleClientSecret)
	setString("google-redirect-url", &cfg.Google.RedirectURL, f.googleRedirectURL)
	setString("token-file", &cfg.Google.TokenFile, f.tokenFile)

	setBool("tls", &cfg.TLS.Enabled, f.tls)
	setString("tls-cert-file", &cfg.TLS.CertFile, f.tlsCertFile)
	setString("tls-key-file", &cfg.TLS.KeyFile, f.tlsKeyFile)
	setString("mkcert-bin", &cfg.TLS.MkcertBin, f.mkcertBin)

	setBool("metrics-enabled", &cfg.Metrics.Enabled, f.metricsEnabled)
	setString("metrics-addr", &cfg.Metrics.Addr, f.metricsAddr)
}

// newLogger builds the process logger. Debug mode switches to text output
// at debug level.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := logging.Options{Level: "info", Format: cfg.LogFormat}
	if cfg.Debug {
		opts.Level = "debug"
		opts.Format = "text"
	}
	return logging.New(opts).With(slog.String("app", cfg.AppName))
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceName = cfg.AppName
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	opts := server.Options{
		FrontendURL: cfg.FrontendURL,
		FrontendDir: cfg.FrontendDir,
		FaviconFile: cfg.FaviconFile,
		Health:      server.NewHealthChecker(),
		Metrics:     metrics,
		Audit:       instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging),
		Logger:      logger,
	}
	if err := wireGoogle(cfg, &opts, logger, metrics); err != nil {
		return err
	}

	srvCfg := server.ServerConfig{Addr: cfg.Addr(), Logger: logger}
	if cfg.TLS.Enabled {
		err := server.EnsureCertificate(ctx, server.CertificateOptions{
			CertFile:  cfg.TLS.CertFile,
			KeyFile:   cfg.TLS.KeyFile,
			MkcertBin: cfg.TLS.MkcertBin,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		srvCfg.CertFile, srvCfg.KeyFile = cfg.TLS.CertFile, cfg.TLS.KeyFile
	}

	if cfg.Metrics.Enabled && provider.Enabled() && provider.PrometheusHandler() != nil {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     cfg.Metrics.Addr,
			Path:     instrConfig.PrometheusEndpoint,
			Provider: provider,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Error("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	logger.Info("starting gateway",
		slog.String("addr", cfg.Addr()),
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("google_configured", cfg.Configured()),
		slog.String("version", version),
	)

	gateway := server.New(opts)
	return server.NewServer(gateway, srvCfg).Run(ctx)
}

// wireGoogle builds the session manager and both adapters when a client
// is configured. Without one the gateway answers 503 on every surface.
func wireGoogle(cfg *config.Config, opts *server.Options, logger *slog.Logger, metrics *instrumentation.Metrics) error {
	if !cfg.Configured() {
		logger.Warn("Google client not configured, Tasks and Calendar endpoints are disabled",
			slog.String("hint", "set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET"))
		return nil
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		return err
	}
	if key == nil {
		logger.Warn("token encryption disabled, the Google token is stored as plain JSON",
			slog.String("token_file", cfg.Google.TokenFile))
	}

	store, err := google.NewFileStore(cfg.Google.TokenFile, key)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	session, err := google.NewSessionManager(cfg.SessionConfig(), store,
		google.WithLogger(logging.NewSlogAdapter(logger.With(slog.String("component", "oauth")))),
		google.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	opts.Auth = session
	opts.Tasks = tasks.NewClient(session,
		tasks.WithRateLimiter(google.NewRateLimiter(instrumentation.ServiceTasks)),
		tasks.WithMetrics(metrics),
	)
	opts.Calendar = calendar.NewClient(session,
		calendar.WithRateLimiter(google.NewRateLimiter(instrumentation.ServiceCalendar)),
		calendar.WithMetrics(metrics),
	)
	return nil
}
