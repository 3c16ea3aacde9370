// Package bridge serves the pot to browsers over a WebSocket.
//
// Every connected client receives the poller's snapshots as JSON, starting
// with the most recent one. Clients control the pot by sending commands:
//
//	{"command": "brew"}
//	{"command": "delay", "seconds1": 900}
//	{"command": "schedule", "seconds1": 900, "seconds2": 1800}
//
// A rejected command is answered with {"type": "error", ...} to the sender
// only. The outcome of an accepted command reaches all clients as a
// snapshot. GET /healthz reports the current endpoint and last snapshot.
package bridge
