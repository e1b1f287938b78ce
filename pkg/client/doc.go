// Package client is the SkillSwap Go SDK.
//
// It wraps the HTTP API: accounts and sessions, the public member directory,
// the swap lifecycle and post-swap ratings.
//
// # Signing in
//
// Login keeps the returned session token on the client, so later calls are
// authenticated automatically:
//
//	c := client.MustNew("http://localhost:8080")
//	me, err := c.Login(ctx, "alice@example.com", "password123")
//
// A token issued elsewhere (for example by the OAuth callback) can be supplied
// up front with WithBearerToken.
//
// # Swaps
//
//	s, err := c.CreateSwap(ctx, client.CreateSwapRequest{
//	    Receiver:       bobID,
//	    SkillOffered:   "Guitar",
//	    SkillRequested: "Spanish",
//	})
//
// The receiver calls Accept or Reject; once accepted, either side calls
// Complete and may then Rate the other.
//
// # Errors
//
// Non-2xx responses are returned as *APIError carrying the HTTP status and
// the API's error code:
//
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == "conflict" { ... }
package client
