// Package metrics holds the gauges published on /metrics.
//
// Families (names and labels are fixed for dashboard compatibility):
//
//	envoy_build_info{version,revision,rustversion}
//	envoy_online{host,envoy}
//	envoy_current_watts{host,envoy}
//	envoy_today_watt_hours{host,envoy}
//	envoy_lifetime_watt_hours{host,envoy}
//	envoy_inverter_last_watts{host,envoy,inverter}
//
// Registry wraps a private prometheus.Registry rather than the global
// default one, and Render encodes it with expfmt in the text format.
package metrics
