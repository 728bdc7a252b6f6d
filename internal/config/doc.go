// Package config loads codecontext settings from defaults, an optional
// TOML or YAML file, a .env file and the environment, in that order.
package config
