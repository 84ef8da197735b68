// Package config defines the runtime settings of fernspiel and
// provides helpers to load, validate and save them in YAML format.
package config
