// Package script runs operator Lua scripts against the command history.
//
// A script sees a sandboxed Lua state with the base, table, string and math
// libraries and a desk table:
//
//	local id = desk.create_game{title = "Spring Jam", status = "open"}
//	desk.import_config("configs/jam.toml")
//	desk.nominate(id, "best-art", "Team Rocket")
//	desk.update_game(id, {title = "Spring Jam 2025"})
//	desk.remove_nomination(other_id)
//
// Every desk call executes one command immediately. When the script
// finishes, everything it did is pushed onto the history as a single undo
// unit named after the script. When the script fails, the commands it ran
// are undone in reverse order and nothing is pushed.
//
// gopher-lua states are not goroutine-safe; a Runner creates a fresh state
// per run and must not be shared across concurrent runs.
package script
