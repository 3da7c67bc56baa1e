// Package app provides the orchestration layer for the washbook application.
//
// # Overview
//
// This package wires together configuration, storage, the query cache, the
// shared stores, the API client and the flows. It is the composition root
// where all dependencies are initialized and connected.
//
// # Architecture
//
// NewEnv builds everything except the UI, so CLI commands and the TUI share
// one wiring path:
//
//  1. Load ~/.config/washbook/config.toml (defaults when missing)
//  2. Load preferences
//  3. Build the slog logger (log file for the TUI, stderr for commands)
//  4. Create a Prometheus registry and the query cache metrics
//  5. Open storage (file, memory or postgres)
//  6. Create the session, location, filter and sync stores
//  7. Create the API client with the session token as its token source
//  8. Build the flows and restore the saved session
//
// Run adds the long-lived pieces:
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> NewEnv()         Wire everything
//	       ├─────> serveMetrics()   /metrics and /healthz (when metrics.listen is set)
//	       ├─────> StartPoller()    Background station refresh
//	       └─────> ui.Run()         Start TUI (blocks)
//
// # Polling Behavior
//
// The poller invalidates the station list and loads it again at a fixed
// interval (default: 30 seconds). Every outcome is recorded in the sync
// store; two failures in a row mark the API offline in the header. While
// failing, the wait doubles per failure up to 30 seconds. The last good
// list stays in the cache and on screen.
package app
