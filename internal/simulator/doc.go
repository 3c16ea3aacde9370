// Package simulator is a software stand-in for the coffee pot firmware.
//
// The Server accepts one request per TCP connection, applies it to a Pot
// state machine and writes a single reply: Acknowledge for commands, the
// current state (with timers) for status queries, Unknown for anything it
// cannot parse. It can also advertise itself over mDNS so the real
// discovery path can be exercised without hardware:
//
//	cfg := simulator.DefaultConfig()
//	cfg.Advertise = true
//	srv := simulator.New(cfg, nil)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package simulator
