// Package state holds the application-wide observable stores.
//
// # Overview
//
// Each store wraps a store.Store, so screens subscribe to it and redraw on
// change. They are built once by app and passed explicitly; there are no
// package-level singletons.
//
//	Stores
//	├── Session   signed-in user, tokens, login progress
//	├── Location  user position, lookup progress and error
//	├── Filter    latest station filter result
//	└── Sync      background refresh health (offline detection)
//
// # Session
//
// SessionStore keeps the session in memory and mirrors tokens, user id and
// profile to persistent storage. While the process runs, memory is the
// source of truth; across restarts, Restore reads storage back:
//
//	SignIn(resp)  → state updated → accessToken, refreshToken, userId, userInfo written
//	SignOut()     → state cleared → keys deleted
//	Restore()     → keys read     → state replaced
//
// Token is passed to api.WithTokenSource so every request carries the
// current access token.
//
// # Location
//
// LocationStore resolves the position in this order:
//
//  1. A manual override saved with SetManualLocation (session scope, so it
//     lasts until the process exits). Overrides with a zero coordinate are
//     ignored.
//  2. The configured Locator (StaticLocator from config, or IPLocator).
//
// A failed lookup keeps the last known coordinates and sets Error to
// "Unable to retrieve location: <reason>". A missing or unsupported locator
// sets "Geolocation is not supported". EnsureLocation only looks up when
// nothing is known and nothing is loading, which makes it safe to call on
// every screen entry.
//
// # Sync
//
// SyncStore counts consecutive failed polls. After two failures the header
// shows the API as offline; the next success resets the count while the
// last good station list stays on screen.
package state
