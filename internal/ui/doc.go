// Package ui renders terminal output for the freshpots CLI.
//
// One-shot commands (status, brew, scan, ...) print a command header and a
// result box through a Printer. Lipgloss does the styling; the width comes
// from the terminal and is clamped to a readable range.
//
//	p := ui.NewPrinter(nil)
//	p.PrintHeader("Pot status", "freshpots status", ui.Detail{Key: "Pot", Value: addr})
//	p.PrintSnapshot("Pot status", snap, addr)
//
// # Logging Integration
//
// Logging is controlled by the FRESHPOTS_LOG_LEVEL environment variable
// (or --log-level). When unset, zap is silent so the styled output is
// displayed cleanly.
package ui
