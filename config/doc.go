// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml, overlaid with environment
// variables (a .env file is honoured when present) and validated using
// struct tags. Direction display names can live inline or in a separate
// directions file.
package config
