// Package config holds the daemon configuration.
//
// A Config is built once at startup: defaults, then an optional YAML file,
// then RFKD_* environment overrides, then validation. It is passed by value
// into the components that need it; nothing reads configuration globally.
package config
