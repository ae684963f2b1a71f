// Package realtime maintains the Harmony realtime connection.
//
// A Session keeps one WebSocket open for the signed-in user, tracks which
// channels the client wants events for, replays those subscriptions after
// every reconnect and fans validated inbound messages out to registered
// handlers.
//
// Failures never surface to callers. Any close, dial error or malformed URL
// schedules another attempt after a fixed delay (3s by default, no backoff, no
// retry limit). Only Disconnect stops the cycle.
//
// Example:
//
//	session, err := realtime.NewSession().
//	    WithURL("ws://localhost:3000").
//	    WithLogger(logger).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session.Subscribe(channelID)
//	session.OnMessage(func(msg wire.Message) {
//	    if m, ok := wire.Created(msg); ok {
//	        fmt.Println(m.Username, m.Content)
//	    }
//	})
//	session.Connect(token)
//	defer session.Disconnect()
package realtime
