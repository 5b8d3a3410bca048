// Package httpapi serves the daemon's read-mostly HTTP API.
//
// Routes:
//
//	GET  /api/health   liveness probe, never authenticated
//	GET  /api/status   daemon status snapshot
//	POST /api/mark     manual attendance for the face in view
//	GET  /api/records  ledger records (identity, date, limit query params)
//	GET  /api/stats    today's attendance summary
//
// When a token is configured every route except health requires
// "Authorization: Bearer <token>".
package httpapi
