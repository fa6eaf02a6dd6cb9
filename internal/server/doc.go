// Package server wires the HTTP facade and the WebSocket sessions: the
// /api/alive read (and debug-mode write) endpoints, /health, /metrics, and
// the /ws handler that owns each connection's join/leave lifecycle.
package server
