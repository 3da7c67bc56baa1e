// Package storage keeps tokens, the signed-in user and the manual location
// override between runs.
//
// Values are strings in one of two scopes. Persistent values survive a
// restart; Session values last only as long as the process, the way a
// browser tab's session storage does. Three backends implement KV:
//
//   - Memory: both scopes in memory, used by tests and the "memory" driver
//   - File: persistent scope in a TOML file, rewritten atomically
//   - SQL: a washbook_kv table, postgres via lib/pq by default
//
// Open picks one from config.Storage.
package storage
