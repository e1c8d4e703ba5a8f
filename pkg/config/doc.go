// Package config reads the TOML cluster description and resolves the
// process-wide defaults from HALO_* environment variables. Defaults are
// resolved once at startup and flow through an explicit context value.
package config
