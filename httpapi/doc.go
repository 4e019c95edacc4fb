// Package httpapi exposes the verification service over HTTP.
//
// Routes:
//
//	POST /api/auth/verify                 verify a launch payload and issue a session
//	GET  /api/auth/me                     describe the bearer session
//	POST /api/auth/logout                 revoke the bearer session
//	GET  /api/admin/users/{id}/sessions   active session count (admin)
//	DELETE /api/admin/users/{id}/sessions revoke every session of a user (admin)
//	GET  /healthz                         backend reachability
//	GET  /metrics                         Prometheus exposition, when configured
package httpapi
