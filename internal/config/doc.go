// Package config loads, normalizes, and validates accentid configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_TOKEN and ONNXRUNTIME_SHARED_LIBRARY_PATH. The Config type centralizes
// every knob the CLI and HTTP server need, from the temp working directory to
// the model identifier and registry.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
