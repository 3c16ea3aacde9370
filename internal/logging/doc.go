// Package logging provides structured logging for the freshpots tools.
//
// This package wraps a global zap logger with convenience functions for the
// events the client cares about: discovery transitions, transactions with
// the pot, and raw wire bytes.
//
// # Log Levels
//
//   - Debug: wire bytes, per-transaction state trace
//   - Info: discovery events, connections
//   - Warn: failed transactions (the consumer only ever sees Unknown)
//   - Error: startup failures
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// the FRESHPOTS_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr so it never mixes with command output on stdout.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
