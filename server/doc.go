// Package server exposes the support pipeline over HTTP.
//
// Routes:
//
//	GET  /health                 liveness
//	GET  /metrics                Prometheus exposition
//	POST /api/v1/tickets         run a ticket synchronously, returns the Outcome
//	GET  /api/v1/runs/:id        inspect a run's checkpoint
//	POST /api/v1/runs/:id/resume continue an interrupted run
//
// When Config.Auth is set every /api/v1 route needs an
// "Authorization: Bearer <token>" header carrying the route's scope.
package server
