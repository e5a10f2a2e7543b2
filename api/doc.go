// Package api serves wikigraph over HTTP:
//
//	GET /api?api=<action>     query surface (also /lookup.php)
//	GET /ws                   websocket exploration session
//	GET /healthz /readyz /health
//	GET /metrics              prometheus, when enabled
//
// Query responses are JSON. Request faults (a missing parameter, an
// unknown action, an empty corpus) answer 200 with {"error": ...};
// document store faults answer 500.
package api
