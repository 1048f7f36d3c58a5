// Package config provides configuration management for thucloud-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON or YAML files
//   - Default configuration values
//   - Overrides from .env files and THUCLOUD_* environment variables
//   - Conversion to http.Options for the HTTP client
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads into the current directory
//	// 5 concurrent downloads, nothing excluded
//	// 3 connection retries
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
//
// # Environment
//
//	err := settings.LoadEnv() // reads ./.env, then THUCLOUD_* variables
//
// Recognized variables are THUCLOUD_DOWNLOADS_PATH, THUCLOUD_MAX_CONCURRENT_DOWNLOADS,
// THUCLOUD_EXCLUDE_EXTENSIONS (comma-separated), THUCLOUD_CHUNK_SIZE,
// THUCLOUD_JOB_TIMEOUT, THUCLOUD_DOWNLOAD_MAX_RETRIES, THUCLOUD_DOWNLOAD_RETRY_COOLDOWN,
// THUCLOUD_DOWNLOAD_RETRY_EXPONENT, THUCLOUD_REQUEST_TIMEOUT, THUCLOUD_USER_AGENT,
// THUCLOUD_BASE_URL, THUCLOUD_MAX_DEPTH and THUCLOUD_LOG_LEVEL.
//
// # Saving Settings
//
//	settings.DownloadsPath = "/data/courses"
//	err := settings.Save("/path/to/config.json")
package config
