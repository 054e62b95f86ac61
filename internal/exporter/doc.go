// Package exporter implements the HTTP handler of envoy-exporter.
//
// New(registry, targets, opts, logger) returns an http.Handler that serves:
//
//	GET /metrics : polls every target sequentially, updates the registry,
//	               returns the text exposition with the encoder's content type
//	GET /*       : static HTML landing page, no device or registry access
//
// A device that fails (transport, decode or schema error) gets envoy_online 0
// and a warning log line; nothing else is written for it during that scrape,
// and the response is still 200. Its previous gauge values persist unless
// Options.ClearStaleInverters is set, in which case its inverter series are
// deleted.
//
// Device calls inherit the scrape request's context, so a scraper that
// disconnects aborts the in-flight device request.
package exporter
