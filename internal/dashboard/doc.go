// Package dashboard is the interactive terminal view of a pot.
//
// The Model follows the poller: every snapshot redraws the state box, and
// single keys send commands (b brew, t stop, r refresh). Delay, warm and
// schedule open a prompt that accepts the same timer syntax as the CLI:
// "15m", "45" (minutes) or "07:30" (a time of day). Only one command is in
// flight at a time; its outcome arrives as a snapshot like any other.
//
//	snaps, unsubscribe := p.Subscribe()
//	defer unsubscribe()
//	err := dashboard.Run(ctx, dashboard.New(p, snaps, endpointFunc))
package dashboard
