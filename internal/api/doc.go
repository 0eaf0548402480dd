// Package api hosts the HTTP server, middleware, and REST handlers for
// festival lookups. Notable routes:
//   - GET / and /health for service identity and liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET {prefix}/festivals/{year} and .../month/{month} for festivals
//     grouped by month.
//   - GET {prefix}/festivals/{year}/religious and .../religious/month/{month}
//     for festivals grouped by religion.
//
// Errors are returned as a JSON body of the form {"detail": "..."}.
package api
