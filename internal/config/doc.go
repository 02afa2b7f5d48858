// Package config loads ballotdesk settings.
//
// Settings are resolved in three steps, later steps overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, usually ballotdesk.toml
//  3. Environment variables prefixed with BALLOTDESK_
//
// Command line flags are applied by the caller on top of the result.
//
// Example file:
//
//	[history]
//	capacity = 200
//
//	[remote]
//	base_url = "https://votes.example.com"
//	timeout = "5s"
//
//	[hotkeys]
//	undo = ["Ctrl+Z"]
//	redo = ["Ctrl+Y", "Ctrl+Shift+Z"]
//
//	[log]
//	level = "debug"
//	file = "ballotdesk.log"
//
// The matching environment variables are BALLOTDESK_HISTORY_CAPACITY,
// BALLOTDESK_REMOTE_BASE_URL, BALLOTDESK_HOTKEYS_UNDO (comma separated)
// and so on.
//
// A Watcher reloads the file when it changes and hands the new settings to
// registered handlers; Applier builds the handler that updates a running
// history and hotkey binder.
package config
