// Package ui provides the terminal interface of washbook.
//
// # Architecture Overview
//
// The UI is a single Bubble Tea program. Model holds plain snapshots of the
// shared stores (session, location, sync) and of the query cache entries it
// shows: the paged station list and the products and reviews of the open
// station. It never fetches in Update; commands started by fetch run the
// flows off the UI goroutine.
//
// Data reaches the model through subscriptions. New subscribes to every
// store and to the station list; opening a station subscribes to its cache
// entries and drops the previous station's. Each notification pushes a
// changedMsg into a small channel and the model re-reads all snapshots.
// Entries that someone invalidated, such as the poller or a booking, are
// reloaded when they are on screen.
//
// # Package Structure
//
//   - app.go: Model, Update and View, key handling, Run
//   - events.go: subscription bridge from stores and cache to tea messages
//   - stations.go: the station list, its sort and search
//   - detail.go: the detail pane (services, upcoming slots, reviews)
//   - header.go: status bar and command bar
//   - modal.go: the manual location dialog
//   - help.go, keys.go: help overlay and key bindings
//   - theme.go, style_helpers.go, layout.go, strings.go: presentation helpers
//
// # Layout
//
//	┌───────────────────────────────────────────────────────────────┐
//	│ washbook  ● alice  Loc: 10.7626,106.6601  12:00:01 (now)      │
//	│ j/k:Navigate  n:More  r:Refresh  s:By distance  /:Search ...  │
//	├─── Stations (20) by name ───┬────────── Sparkle Wash ─────────┤
//	│ Sparkle Wash · ★ 4.6 · 1.2 km│ 12 Nguyen Hue, District 1      │
//	│ ...                         │ Services                        │
//	│ n: load more                │   Basic wash  120,000 VND · 30m │
//	└─────────────────────────────┴─────────────────────────────────┘
//
// Below 100 columns, or with layout = "compact" in the preferences, the
// detail pane is stacked under the list.
//
// # Key Bindings
//
//   - j/k, g/G, ctrl+d/u: move in the focused pane
//   - n: load the next page; reaching the last row does the same
//   - r: invalidate and reload stations and the open station
//   - s: toggle sorting by name or distance
//   - /: search by name or address; esc clears
//   - L: set a manual location
//   - T: cycle theme (saved to the preferences file)
//   - tab: switch focus between list and detail
//   - h/?: help; e or ctrl+c: quit
//
// Theme and layout edits made to the preferences file while the program
// runs are applied live.
package ui
