// Package wire defines the JSON messages exchanged over the Harmony realtime
// connection.
//
// Every frame is a JSON object with a "type" discriminant. Clients send
// subscribe and unsubscribe requests for channels; the server acknowledges them
// with subscribed and unsubscribed, pushes message_created events for
// subscribed channels and reports failures with error.
package wire
