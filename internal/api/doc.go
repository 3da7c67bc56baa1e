// Package api provides an HTTP client for the car-wash marketplace backend.
//
// # Overview
//
// The backend is a plain REST service. This package owns the wire types and
// one Go method per endpoint; caching, session handling and retries live in
// the query, state and flows packages above it.
//
// # Client Usage
//
//	client, err := api.NewClient("http://localhost:8080",
//		api.WithTokenSource(sessions.Token),
//	)
//	if err != nil {
//		return err
//	}
//	stations, err := client.ListCarwashes(ctx)
//
// # Errors
//
// Any response outside the 2xx range becomes a *StatusError carrying the
// method, path, status code and the server's message. The message is taken
// from a JSON "message" field, then "error", then the raw text body, then
// the standard status text. Use errors.As or IsStatus to inspect it:
//
//	if api.IsStatus(err, http.StatusUnauthorized) {
//		// token expired
//	}
//
// Transport failures wrap as "execute request: ..." and malformed bodies
// as "decode response: ...".
//
// # Permissive decoding
//
// Payload shapes vary between backend versions, so the types accept what
// the server actually sends:
//
//   - ID and Coordinate accept numbers or numeric strings
//   - Flag distinguishes false from absent (Schedule.Active defaults to true)
//   - CarwashSummary.Name reads carwashName or carwash_name
//   - unknown fields are ignored, missing fields decode to zero values
//
// # Tokens
//
// Claims reads the user id, subject, role and expiry from an access token
// without verifying it. Verification is the server's job.
package api
