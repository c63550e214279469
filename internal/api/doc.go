// Package api hosts the HTTP server, middleware, and handlers that trigger
// downloads on demand. Notable routes:
//   - POST /download runs one "download next file" operation.
//   - GET /next reports the period the next run will attempt.
//   - GET /health, /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
package api
