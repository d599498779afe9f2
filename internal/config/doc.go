// Package config loads, normalizes, and validates Cardflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CARDFLOW_API_TOKEN and the provider API key variables. The Config type
// centralizes every knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
