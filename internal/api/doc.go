// Package api hosts the HTTP server, middleware, and REST handlers for the
// screening service. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/profile and GET /v1/profile?url= to screen one profile.
package api
