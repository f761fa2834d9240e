// Package config handles configuration loading for textline-gateway.
//
// Configuration is a single YAML file. Environment variables in the form
// ${VAR_NAME} are expanded before parsing, so secrets like the gateway auth
// token can be supplied from the environment. Duration knobs are written as
// Go duration strings ("10s", "30m") and parsed at load time. Configuration
// is read once at startup and never mutated; changing it requires a restart.
package config
