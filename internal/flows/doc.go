// Package flows implements the application's use-cases on top of the
// query cache, the API client and the shared stores.
//
// Each flow is a struct built once by app from Deps:
//
//	Auth     login, logout, registration, phone OTP, password reset, profile
//	Catalog  station list, detail, products, reviews, search pages, filter, coupons
//	Booking  slot booking, reviews with image upload
//	Owner    station dashboard for owners
//
// Reads go through query.Query so screens and CLI commands share one cache.
// Writes are query.Mutation values; their success callbacks invalidate the
// keys they affect (see the Key* helpers) rather than patching cached data.
//
// Logout clears local state before it talks to the server, so a slow or
// failing revocation never leaves the user half signed in.
package flows
