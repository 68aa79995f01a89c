// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration loading and validation.
//
// Configuration is read from a TOML file in the platform config directory
// (or an explicit path), merged over built-in defaults via Viper, and
// validated before use.
package config
