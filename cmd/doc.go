// Package cmd implements the command-line interface for szymon.
//
// This package provides the following commands:
//   - serve: Start the gateway (default when no subcommand is given)
//   - version: Display version information
//   - generate-key: Print a new token encryption key
package cmd
