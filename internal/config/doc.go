// Package config loads the gateway configuration.
//
// Values are layered, later layers winning: built-in defaults, an optional
// YAML file (with ${VAR} references expanded from the environment),
// environment variables, and finally command-line flags that were set
// explicitly. Flags are applied by package cmd; Finalize then derives the
// base and redirect URLs and validates the result.
package config
