// Package middleware exposes net/http adapters that admit only requests
// carrying a valid tgAuth session token.
//
// [Guard] reads the Authorization bearer token, validates it through the
// Engine and stores the [tgAuth.AuthResult] in the request context.
// [RequireRole] additionally demands a role, e.g. [tgAuth.RoleAdmin] for
// admin dashboards.
//
// Authentication decisions are delegated to Engine.ValidateSession. This
// package must not parse tokens or touch Redis itself.
package middleware
