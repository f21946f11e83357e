// Package config loads basket's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/basket/config.toml
//  3. If the file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing or blank, use defaults for them
//
// # Fields
//
//	api_url = "127.0.0.1:8080"          # host:port or full URL of the order service
//	token = ""                          # bearer token, sent when set
//	mirror_dir = "~/.local/share/basket"
//	log_path = ""                       # defaults to <mirror_dir>/basket.log
//	log_level = "info"                  # zap level name
//	search_debounce_ms = 500
//	request_timeout_ms = 5000
//	refresh_seconds = 30                # 0 disables background refresh
//	seller = false                      # start in the seller order view
//	theme = "Nightfox"                  # Nightfox, Kanagawa or Slate
//
// Tilde expansion is applied to mirror_dir and log_path.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML parse errors and out-of-range values. A missing file is
// not an error, so basket runs without any configuration.
package config
