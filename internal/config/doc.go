// Package config loads runtime configuration from multiple sources (YAML files,
// .env files, environment variables, CLI flags) with precedence: CLI flags >
// YAML config > Environment variables > Defaults. Besides server settings it
// carries the provider rate cards and the scenario defaults the session starts with.
package config
