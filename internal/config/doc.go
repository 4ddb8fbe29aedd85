// Package config provides configuration loading and validation for the
// Darija tutor service. It handles YAML-based configuration with struct
// validation; the inference credential is read from the environment only.
package config
