// Package api hosts the HTTP server, middleware, and handlers of SmartQA.
// Notable routes:
//   - POST /audit runs one audit and returns the report.
//   - GET /logs streams progress events as Server-Sent Events.
//   - GET /health, /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /audits and /audits/{id}/events expose the recorded audit history
//     when a ProgressRepository is configured.
package api
