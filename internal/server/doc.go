// Package server provides the HTTP server for the EcoBoard dashboard and API.
//
// It handles all HTTP concerns of the dashboard:
//
//   - Dashboard serving: the embedded page at "/"
//   - REST API: rendered panels at "/api/panels" and "/api/panels/{id}"
//   - Server-Sent Events: live panel updates at "/api/sse"
//   - Static charts: SVG renderings of chart panels at "/charts/{id}.svg"
//   - Operations: "/metrics" and "/healthz"
//
// Routing and request IDs come from chi. The server supports graceful
// shutdown via context cancellation, with a 5-second timeout for in-flight
// requests.
package server
