// Package logtail reads washbook's own log file.
//
// The TUI owns the terminal, so the application logs to a file under the
// configured log directory. `washbook logs` uses this package to print the
// end of that file, optionally only from a minimum level, and to follow it
// while the TUI runs in another terminal.
//
// Read keeps a ring of the last maxLines lines, so memory stays bounded for
// large files. A missing file yields no lines rather than an error.
//
// Follow watches the log directory with fsnotify and prints complete lines
// as they are appended. Partial lines wait for their newline. When the file
// is truncated, replaced or recreated, reading restarts from the beginning.
//
// Level parsing understands the key=value output of slog's text handler.
package logtail
