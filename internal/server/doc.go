// Package server runs typhoon as a long-lived service.
//
// A Poller refreshes the latest FetchResult on an interval and keeps it in
// memory. Server exposes it over HTTP next to health, readiness and
// Prometheus endpoints:
//
//	GET /healthz             liveness
//	GET /readyz              503 until the first successful poll
//	GET /metrics             Prometheus
//	GET /api/status          latest result, optional ?filter=
//	GET /api/cities          city names of the latest result
//	GET /api/cities/{city}   one city with its display text
package server
