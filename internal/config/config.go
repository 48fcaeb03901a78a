package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/teemow/szymon/internal/google"
)

// Defaults
const (
	DefaultAppName     = "szymon"
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 2137
	DefaultTokenFile   = ".google_token.json"
	DefaultCertFile    = "certs/cert.pem"
	DefaultKeyFile     = "certs/key.pem"
	DefaultMkcertBin   = "mkcert"
	DefaultMetricsAddr = ":9090"
	DefaultLogFormat   = "json"

	callbackPath = "/api/tasks/auth/callback"
)

// Config is the complete gateway configuration.
type Config struct {
	AppName string `yaml:"app_name"`
	Debug   bool   `yaml:"debug"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	// BaseURL is the externally visible URL of the gateway. Derived from
	// the port and TLS setting when empty.
	BaseURL string `yaml:"base_url"`

	// FrontendURL is where the browser is sent after a successful sign-in.
	// Empty means a page that closes itself.
	FrontendURL string `yaml:"frontend_url"`

	// FrontendDir holds a built single-page app. Empty disables static hosting.
	FrontendDir string `yaml:"frontend_dir"`
	FaviconFile string `yaml:"favicon_file"`

	// LogFormat is "json" or "text". Debug forces text.
	LogFormat string `yaml:"log_format"`

	Google  GoogleConfig  `yaml:"google"`
	TLS     TLSConfig     `yaml:"tls"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// GoogleConfig holds the OAuth client and token storage settings.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	TokenFile    string `yaml:"token_file"`

	// EncryptionKey is a base64 AES-256 key. Empty stores the token as plain JSON.
	EncryptionKey string `yaml:"encryption_key"`
}

// TLSConfig controls HTTPS and the mkcert bootstrap.
type TLSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	CertFile  string `yaml:"cert_file"`
	KeyFile   string `yaml:"key_file"`
	MkcertBin string `yaml:"mkcert_bin"`
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppName:   DefaultAppName,
		Host:      DefaultHost,
		Port:      DefaultPort,
		LogFormat: DefaultLogFormat,
		Google: GoogleConfig{
			TokenFile: DefaultTokenFile,
		},
		TLS: TLSConfig{
			Enabled:   true,
			CertFile:  DefaultCertFile,
			KeyFile:   DefaultKeyFile,
			MkcertBin: DefaultMkcertBin,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    DefaultMetricsAddr,
		},
	}
}

// Addr is the listen address for the gateway.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Configured reports whether Google client credentials are present.
func (c *Config) Configured() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

// SessionConfig returns the OAuth settings for google.NewSessionManager.
func (c *Config) SessionConfig() google.Config {
	return google.Config{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
	}
}

// EncryptionKey decodes the token encryption key. A nil key disables
// encryption.
func (c *Config) EncryptionKey() ([]byte, error) {
	return google.EncryptionKeyFromBase64(c.Google.EncryptionKey)
}

// Finalize fills in derived values and validates the result.
func (c *Config) Finalize() error {
	c.complete()
	return c.Validate()
}

func (c *Config) complete() {
	if c.BaseURL == "" {
		scheme := "https"
		if !c.TLS.Enabled {
			scheme = "http"
		}
		c.BaseURL = fmt.Sprintf("%s://localhost:%d", scheme, c.Port)
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	c.FrontendURL = strings.TrimSuffix(c.FrontendURL, "/")

	if c.Google.RedirectURL == "" {
		c.Google.RedirectURL = c.BaseURL + callbackPath
	}
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		errs = append(errs, errors.New("google client ID and client secret must be set together"))
	}

	if _, err := c.EncryptionKey(); err != nil {
		errs = append(errs, fmt.Errorf("token encryption key: %w", err))
	}

	if c.Google.TokenFile == "" {
		errs = append(errs, errors.New("token file path is required"))
	}

	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("base URL %q must be an absolute URL", c.BaseURL))
		}
	}

	if c.TLS.Enabled && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("TLS cert and key files are required when TLS is enabled"))
	}

	switch c.LogFormat {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log format must be json or text, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}
