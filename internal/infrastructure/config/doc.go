// Package config loads application configuration from environment
// variables, with an optional YAML overrides file layered on top.
package config
