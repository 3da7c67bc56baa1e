// Package config loads washbook's TOML configuration.
//
// # Overview
//
// Everything is optional. washbook runs against a backend on
// http://localhost:8080 with file-backed token storage when no config file
// exists at all.
//
// # Resolution Order
//
//  1. Built-in defaults (Default)
//  2. The TOML file: the path passed to Load, or ~/.config/washbook/config.toml
//  3. Environment: WASHBOOK_API_URL and WASHBOOK_LOG_LEVEL
//  4. Validate
//
// A missing file is not an error. A file that exists but does not parse is.
//
// # TOML Format
//
//	api_url = "https://wash.example.com"
//	request_timeout = "10s"
//	log_level = "info"
//	log_dir = "~/.local/share/washbook/logs"
//
//	[query]
//	carwash_stale_time = "5m"   # how long the station list stays fresh
//	default_stale_time = "0s"   # 0 refetches on every access
//
//	[search]
//	page_size = 10
//	pagination = "client"       # or "server"
//
//	[storage]
//	driver = "file"             # "memory", "file" or "postgres"
//	path = "~/.local/share/washbook/storage.toml"
//	dsn = ""                    # required for postgres
//
//	[location]
//	latitude = 10.7626
//	longitude = 106.6601
//	lookup_url = ""             # IP geolocation endpoint returning {lat, lon}
//
//	[media]
//	bucket = ""                 # feedback image uploads are off when empty
//	region = "us-east-1"
//	endpoint = ""               # S3-compatible endpoint, path-style
//	public_base_url = ""
//	access_key_id = ""
//	secret_access_key = ""
//
//	[metrics]
//	listen = ""                 # e.g. "127.0.0.1:9464" serves /metrics
//
// Strings are trimmed, paths get ~ expanded and made absolute, and durations
// use Go syntax ("90s", "5m").
//
// # Pagination
//
// "client" fetches the full station list once and slices it into pages.
// "server" asks the backend for each page with ?page=&size=. The backend
// contract decides which one is correct; client is the default because the
// list endpoint is known to exist.
package config
