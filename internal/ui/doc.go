// Package ui holds the interactive pieces of the CLI.
//
//   - [Prompter] : huh forms for the client credentials and the pasted redirect URL, satisfying auth.Prompter
//   - [Palette] : lipgloss styles for status output
//
// Prompts honour context cancellation, so the caller's prompt timeout ends an abandoned login.
package ui
