// Package config loads arenaview settings.
//
// Resolution order, later wins:
//
//  1. Built-in defaults (Default)
//  2. The TOML file, ~/.config/arenaview/config.toml unless a path is given
//  3. ARENAVIEW_* environment variables
//
// A missing file is not an error. Blank string values in the file fall back
// to the defaults for required fields; a blank listen_addr disables the HTTP
// feed. Paths accept a leading ~ and are made absolute. The merged result is
// validated before Load returns it.
//
// Example config.toml:
//
//	log_path = "~/AppData/LocalLow/Wizards Of The Coast/MTGA/Player.log"
//	cache_dir = "~/.cache/arenaview"
//	scryfall_url = "https://api.scryfall.com"
//	request_interval = "100ms"
//	max_inflight = 8
//	listen_addr = "127.0.0.1:7777"
//	stats_path = "~/Downloads/card-ratings.json"
//	log_level = "info"
//	log_format = "console"
//	log_file = "~/.local/state/arenaview/arenaview.log"
//	emit_interval = "100ms"
//
// Environment variables use the upper-cased key, e.g. ARENAVIEW_LOG_PATH or
// ARENAVIEW_REQUEST_INTERVAL=250ms.
package config
