// Package envoy reads production telemetry from Enphase Envoy gateways.
//
// Client.Fetch performs one GET against <url><suffix> with HTTP Digest
// authentication (github.com/icholy/digest handles the 401 challenge and the
// authenticated retry), buffers the body and checks that it is JSON.
//
// Reader.Status calls the two endpoints used by the exporter:
//
//	GET /api/v1/production            {"wattHoursLifetime","wattHoursToday","wattsNow"}
//	GET /api/v1/production/inverters  [{"serialNumber","lastReportWatts"}, ...]
//
// and returns a Snapshot only when both succeed. Failures wrap one of
// ErrTransport, ErrDecode or ErrSchema; callers match them with errors.Is.
package envoy
