// Package store provides a minimal observable state container.
//
// A Store holds one snapshot of some state T. Writers replace the snapshot
// wholesale with Set or with an updater passed to Update; every write then
// calls the registered listeners, which take no arguments and read the new
// value back with Get.
//
// # Notification Rules
//
//   - Each listener registered when a write is adopted runs exactly once for
//     that write.
//   - A listener added during a notification pass waits for the next write.
//   - A listener removed during a pass is skipped for the rest of that pass.
//   - Passes are delivered in the order writes were adopted.
//
// Listeners run outside the store's locks, so they may read the store, write
// to it, or subscribe further listeners. A write issued from inside a
// listener is delivered once the current pass finishes. When several
// goroutines write at the same time, the goroutine already delivering picks
// up the later passes, so a writer can return before its own pass has run.
//
// An updater that panics leaves the state untouched and the panic reaches
// the caller of Update.
//
// The application builds one Store per concern (session, geolocation,
// filter results) and hands them to whoever needs them; nothing in this
// package is global.
package store
