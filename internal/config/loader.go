package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "SZYMON_CONFIG"

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load returns defaults overlaid with the YAML file at path (if any) and the
// process environment. Flags are not applied and Finalize is not called.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML data onto a copy of the defaults. ${VAR} references
// are expanded first.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeYAML(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := c.mergeYAML(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeYAML(data []byte) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"APP_NAME":             &c.AppName,
		"HOST":                 &c.Host,
		"BASE_URL":             &c.BaseURL,
		"FRONTEND_URL":         &c.FrontendURL,
		"FRONTEND_DIR":         &c.FrontendDir,
		"FAVICON_FILE":         &c.FaviconFile,
		"LOG_FORMAT":           &c.LogFormat,
		"GOOGLE_CLIENT_ID":     &c.Google.ClientID,
		"GOOGLE_CLIENT_SECRET": &c.Google.ClientSecret,
		"GOOGLE_REDIRECT_URL":  &c.Google.RedirectURL,
		"GOOGLE_TOKEN_FILE":    &c.Google.TokenFile,
		"TOKEN_ENCRYPTION_KEY": &c.Google.EncryptionKey,
		"TLS_CERT_FILE":        &c.TLS.CertFile,
		"TLS_KEY_FILE":         &c.TLS.KeyFile,
		"MKCERT_BIN":           &c.TLS.MkcertBin,
		"METRICS_ADDR":         &c.Metrics.Addr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"DEBUG":           &c.Debug,
		"TLS_ENABLED":     &c.TLS.Enabled,
		"METRICS_ENABLED": &c.Metrics.Enabled,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q (expected true/false)", key, v)
		}
		*dst = parsed
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT value %q: %w", v, err)
		}
		c.Port = port
	}

	return nil
}
