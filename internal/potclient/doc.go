// Package potclient runs request/response transactions with the coffee pot.
//
// A transaction is one short-lived TCP connection:
//
//	Idle → Connecting → Sending → Waiting → Receiving → Acknowledged | DataReceived
//
// with any step able to drop to Failed. The pot's replies carry no length or
// terminator, so after writing the request the client sleeps a fixed delay
// and then decodes whatever has arrived.
//
// Every failure is reported to the caller as an Unknown response. The cause
// is classified as a TransactionError and logged, never returned:
//
//	client := potclient.NewClient(manager)
//	client.Transact(protocol.Warm(600), potclient.DefaultResponseDelay, func(resp protocol.Response) {
//	    if resp.IsUnknown() {
//	        // pot not controllable right now
//	    }
//	})
//
// Transact blocks for the whole exchange and has no retry; run it off any
// event loop. Concurrent transactions open independent connections.
package potclient
