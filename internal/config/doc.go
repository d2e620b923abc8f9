// Package config defines the application configuration structure and
// loading logic. Configuration is sourced from environment variables
// (NUTRILOG_ prefix) and an optional config.yaml, then validated.
package config
