// Package config loads, normalizes, and validates amreingest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// Archivematica and Storage Service API keys. The Config type centralizes
// every knob the reingest engine and CLI need: where the job database and run
// lock live, how to reach the pipeline, and how aggressively to admit work.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
