// Package server wraps net/http.Server with a start/stop lifecycle used by
// cmd/ragcore for the API listener. The telemetry metrics listener runs its
// own http.Server.
package server
