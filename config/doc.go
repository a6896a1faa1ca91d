// Package config loads service configuration from YAML. Environment variables
// in the form ${VAR_NAME} are expanded before parsing, and duration fields
// accept Go duration strings ("30s", "2m").
package config
