// Package api is the Harmony REST client.
//
// Every call sends JSON, attaches "Authorization: Bearer <token>" when the
// configured TokenSource yields a token, and validates the response body
// against the schema package before returning it. Failures are reported as
// *Error carrying the HTTP status and the server's message.
//
//	client, err := api.NewClient().
//	    WithBaseURL("http://localhost:3000").
//	    WithTokenSource(store.Token).
//	    Build()
//
//	servers, err := client.Servers(ctx)
package api
