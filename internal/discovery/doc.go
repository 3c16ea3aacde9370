// Package discovery locates the coffee pot on the local network using
// multicast DNS (mDNS).
//
// The pot advertises itself under the "_johnscoffeepot._tcp" service type.
// Finding a service and knowing its address are separate steps: a browse
// reports instance names, and each instance must then be resolved before it
// can be dialled.
//
// # Discovery Lifecycle
//
// A Manager runs one discovery session at a time:
//  1. Start begins browsing for the service type
//  2. Each found instance is resolved to an IP and port
//  3. On success the endpoint is published and onAvailable fires
//  4. On resolution failure the endpoint is cleared and onUnavailable fires
//  5. An available pot is re-resolved every RefreshInterval; failure means
//     the pot is gone, so onUnavailable fires and browsing restarts
//  6. Stop cancels everything and clears the endpoint
//
// Current always agrees with the last delivered callback: non-nil after
// onAvailable, nil after onUnavailable or Stop.
//
// # Usage Example
//
//	m := discovery.NewManager()
//	session, err := m.Start(ctx, discovery.DefaultServiceType,
//	    func() { fmt.Println("pot at", m.Current().Address()) },
//	    func() { fmt.Println("pot unavailable") },
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop(session)
//
// For a one-shot listing, Scanner browses for a fixed time and returns every
// instance that answered. Static stands in for a Manager when the pot address
// is known in advance.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The pot must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// Current may be called from any goroutine. Callbacks for a session are
// delivered from a single goroutine, never concurrently, and none fire after
// Stop returns.
package discovery
