// Package poller keeps a current view of the pot by querying it on a fixed
// interval, and turns replies into Snapshots for the CLI, dashboard and
// websocket bridge.
//
// A Poller owns the background goroutine that transactions need. A
// Supervisor starts the Poller when discovery reports the pot available and
// stops it, publishing NotConnected, when the pot is lost.
package poller
