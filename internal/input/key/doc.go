// Package key provides key chords and their parsing for the console.
//
//   - Key: identifies a special key, or KeyRune for characters
//   - Modifier: Ctrl, Alt, Shift, Meta
//   - Event: one key press with modifiers
//
// # Key Specifications
//
// Chords in configuration files can be written as:
//
//   - Simple keys: "a", "Enter", "Escape"
//   - With modifiers: "Ctrl+Z", "Ctrl+Shift+Z", "Meta+Z"
//   - Vim-style: "<C-z>", "<C-S-z>", "<D-z>"
//
// Events are compared after Normalize, so "Ctrl+Z" and "<C-z>" name the
// same chord.
package key
