package metrics

import (
	"bytes"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Label names. "rustversion" is kept from earlier releases so existing
// dashboards keep matching; it carries the Go runtime version.
const (
	labelHost        = "host"
	labelEnvoy       = "envoy"
	labelInverter    = "inverter"
	labelVersion     = "version"
	labelRevision    = "revision"
	labelRustVersion = "rustversion"
)

// Registry is the exporter's set of gauges. It is created once by main and
// passed to the scrape handler; all methods are safe for concurrent use and
// every setter replaces the previous value for its label tuple.
type Registry struct {
	reg    *prometheus.Registry
	format expfmt.Format

	buildInfo         *prometheus.GaugeVec
	online            *prometheus.GaugeVec
	currentWatts      *prometheus.GaugeVec
	todayWattHours    *prometheus.GaugeVec
	lifetimeWattHours *prometheus.GaugeVec
	inverterLastWatts *prometheus.GaugeVec
}

// NewRegistry builds a Registry backed by a private prometheus.Registry.
// No Go runtime or process collectors are registered.
func NewRegistry() *Registry {
	device := []string{labelHost, labelEnvoy}

	r := &Registry{
		reg:    prometheus.NewRegistry(),
		format: expfmt.NewFormat(expfmt.TypeTextPlain),

		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envoy_build_info",
			Help: "A metric with a constant '1' value labeled by version, revision and rustversion",
		}, []string{labelVersion, labelRevision, labelRustVersion}),
		online: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envoy_online",
			Help: "Metric scraping successful",
		}, device),
		currentWatts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envoy_current_watts",
			Help: "Number of watts being produced",
		}, device),
		todayWattHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envoy_today_watt_hours",
			Help: "Number of watt hours produced today",
		}, device),
		lifetimeWattHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envoy_lifetime_watt_hours",
			Help: "Number of watt hours ever produced",
		}, device),
		inverterLastWatts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envoy_inverter_last_watts",
			Help: "Number of watts last reported produced by an inverter",
		}, []string{labelHost, labelEnvoy, labelInverter}),
	}

	r.reg.MustRegister(
		r.buildInfo,
		r.online,
		r.currentWatts,
		r.todayWattHours,
		r.lifetimeWattHours,
		r.inverterLastWatts,
	)
	return r
}

// SetOnline records whether the last scrape of a device succeeded (1) or not (0).
func (r *Registry) SetOnline(host, serial string, online bool) {
	v := 0.0
	if online {
		v = 1
	}
	r.online.WithLabelValues(host, serial).Set(v)
}

// SetCurrentWatts records a device's instantaneous production.
func (r *Registry) SetCurrentWatts(host, serial string, watts int64) {
	r.currentWatts.WithLabelValues(host, serial).Set(float64(watts))
}

// SetTodayWattHours records a device's production since local midnight.
func (r *Registry) SetTodayWattHours(host, serial string, wh int64) {
	r.todayWattHours.WithLabelValues(host, serial).Set(float64(wh))
}

// SetLifetimeWattHours records a device's total production.
func (r *Registry) SetLifetimeWattHours(host, serial string, wh int64) {
	r.lifetimeWattHours.WithLabelValues(host, serial).Set(float64(wh))
}

// SetInverterWatts records the last report of one inverter behind a device.
func (r *Registry) SetInverterWatts(host, serial, inverter string, watts int64) {
	r.inverterLastWatts.WithLabelValues(host, serial, inverter).Set(float64(watts))
}

// ClearInverters deletes every inverter series of one device and returns how
// many were removed.
func (r *Registry) ClearInverters(host, serial string) int {
	return r.inverterLastWatts.DeletePartialMatch(prometheus.Labels{
		labelHost:  host,
		labelEnvoy: serial,
	})
}

// SetBuildInfo sets the constant build info series, replacing any series
// written with other label values.
func (r *Registry) SetBuildInfo(version, revision, runtimeVersion string) {
	r.buildInfo.Reset()
	r.buildInfo.WithLabelValues(version, revision, runtimeVersion).Set(1)
}

// ContentType is the Content-Type header value matching Render's output.
func (r *Registry) ContentType() string {
	return string(r.format)
}

// Render gathers all families and encodes them in the Prometheus text
// exposition format. Output is sorted by family and label values, so two
// renders without an intervening write are byte-identical.
func (r *Registry) Render() ([]byte, error) {
	mfs, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("metrics: gather: %w", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, r.format, mfs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encode writes mfs to w in the given exposition format.
func encode(w io.Writer, format expfmt.Format, mfs []*dto.MetricFamily) error {
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
