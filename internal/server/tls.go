package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CertificateOptions configures EnsureCertificate.
type CertificateOptions struct {
	CertFile  string
	KeyFile   string
	MkcertBin string

	// Run defaults to executing the command.
	Run CommandRunner
	// Hostname defaults to os.Hostname.
	Hostname func() (string, error)
	Logger   *slog.Logger
}

// EnsureCertificate makes sure a development certificate exists. When the
// certificate or key file is missing it runs mkcert once to create both,
// valid for localhost, the loopback and wildcard addresses and this host.
func EnsureCertificate(ctx context.Context, opts CertificateOptions) error {
	if opts.Run == nil {
		opts.Run = execRunner
	}
	if opts.Hostname == nil {
		opts.Hostname = os.Hostname
	}
	if opts.MkcertBin == "" {
		opts.MkcertBin = "mkcert"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	certOK, err := fileExists(opts.CertFile)
	if err != nil {
		return err
	}
	keyOK, err := fileExists(opts.KeyFile)
	if err != nil {
		return err
	}
	if certOK && keyOK {
		return nil
	}

	for _, f := range []string{opts.CertFile, opts.KeyFile} {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			return fmt.Errorf("failed to create certificate directory: %w", err)
		}
	}

	args := []string{
		"-cert-file", opts.CertFile,
		"-key-file", opts.KeyFile,
		"localhost", "127.0.0.1", "::1", "0.0.0.0",
	}
	if host, err := opts.Hostname(); err == nil && host != "" {
		args = append(args, host)
	}

	opts.Logger.Info("generating TLS certificate",
		slog.String("mkcert", opts.MkcertBin),
		slog.String("cert_file", opts.CertFile),
		slog.String("key_file", opts.KeyFile),
	)
	out, err := opts.Run(ctx, opts.MkcertBin, args...)
	if err != nil {
		return fmt.Errorf("mkcert failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}
