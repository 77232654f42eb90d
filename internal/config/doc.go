// Package config provides configuration management for kona.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from a config file (TOML, YAML or JSON)
//   - KONA_* environment variable overrides
//   - Validation of the loaded values
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Saves kona.zip to the current directory
//	// Scratch archive in the OS temp dir with 4 GiB reserved
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/kona.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Environment
//
// Every key can be overridden with an environment variable, for example
// KONA_OUTPUT_DIR, KONA_FETCH_TIMEOUT or KONA_LOG_LEVEL.
//
// # Saving Settings
//
//	settings.OutputDir = "/home/me/Downloads"
//	err := settings.Save("/path/to/kona.toml")
package config
