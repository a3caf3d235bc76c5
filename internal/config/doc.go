// Package config loads, normalizes, and validates Minuet's TOML
// configuration. Defaults live in defaults.go; Load layers a config file
// (explicit path, ~/.config/minuet/config.toml, or ./minuet.toml) over them,
// expands home-relative paths, and applies environment fallbacks for service
// API keys.
package config
