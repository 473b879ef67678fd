// Package handlers implements the HTTP handlers cmd/ragcore registers on
// its API mux: health/readiness/version probes plus the answer and
// retrieve endpoints backed by ragcore.Core.
package handlers
