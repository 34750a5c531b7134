// Package config loads annoset settings from TOML, applies environment
// overrides and validates the result before any command touches a project.
package config
