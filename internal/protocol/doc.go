// Package protocol implements the coffee pot's binary wire format.
//
// Every message is one ASCII tag byte optionally followed by one or two
// 16-bit unsigned timers (seconds, big-endian). There is no length prefix and
// no terminator: the number of timers is implied by the tag and, for replies,
// by what was sent.
//
// # Message Table
//
//	Tag  Kind          Request payload   Reply payload
//	'U'  Unknown       n/a               none
//	'M'  QueryState    none              depends on reported state
//	'B'  Brew          none              'K'
//	'T'  Stop          none              'K'
//	'D'  Delay         1 timer           1 timer when queried
//	'W'  Warm          1 timer           1 timer when queried
//	'C'  Schedule      2 timers          2 timers when queried
//	'K'  Acknowledge   never sent        none
//
// # Decoding Replies
//
// Replies are interpreted against the request kind:
//
//	resp, err := protocol.DecodeResponse(bytes.NewReader(reply), protocol.KindQueryState)
//	if err != nil {
//	    // resp is Unknown; err says why
//	}
//
// A control command (Brew, Stop, Delay, Warm, Schedule) only accepts 'K'.
// A QueryState reply carries the pot's current kind plus its timers.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
