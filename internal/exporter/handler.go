package exporter

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/obsidianstack/envoy-exporter/internal/config"
	"github.com/obsidianstack/envoy-exporter/internal/envoy"
	"github.com/obsidianstack/envoy-exporter/internal/metrics"
	"github.com/obsidianstack/envoy-exporter/internal/version"
)

// MetricsPath is the scrape endpoint. Every other path serves the landing page.
const MetricsPath = "/metrics"

const landingPage = `<html>
<head><title>Enphase Envoy Exporter</title></head>
<body>
<h1>Enphase Envoy Exporter</h1>
<p><a href="/metrics">Metrics</a></p>
</body>
</html>
`

// StatusReader reads one device snapshot. *envoy.Reader implements it.
type StatusReader interface {
	Status(ctx context.Context) (*envoy.Snapshot, error)
}

// Target is one configured device: its label values and its reader.
type Target struct {
	Host   string
	Serial string
	Reader StatusReader
}

// Options tune a Handler.
type Options struct {
	// ClearStaleInverters deletes a device's inverter series when the device
	// fails a scrape. When false the last values are kept.
	ClearStaleInverters bool

	// Build is published as envoy_build_info.
	Build version.Info
}

// Handler serves /metrics by polling every target in order, and the landing
// page on any other path. It keeps no state besides the registry.
type Handler struct {
	reg     *metrics.Registry
	targets []Target
	opts    Options
	logger  *zap.Logger
}

// New creates a Handler that writes into reg.
func New(reg *metrics.Registry, targets []Target, opts Options, logger *zap.Logger) *Handler {
	return &Handler{
		reg:     reg,
		targets: targets,
		opts:    opts,
		logger:  logger,
	}
}

// NewTargets builds one digest-authenticated reader per configured device.
func NewTargets(cfg *config.Config) []Target {
	targets := make([]Target, 0, len(cfg.Systems))
	for _, dev := range cfg.Systems {
		client := envoy.NewClient(dev, dev.EffectiveTimeout(time.Duration(cfg.Timeout)))
		targets = append(targets, Target{
			Host:   dev.Host,
			Serial: dev.SN,
			Reader: envoy.NewReader(client),
		})
	}
	return targets
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == MetricsPath {
		h.metrics(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(landingPage))
}

// metrics runs one scrape pass and writes the rendered registry.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var failed int
	for _, t := range h.targets {
		if !h.scrape(ctx, t) {
			failed++
		}
	}

	b := h.opts.Build
	h.reg.SetBuildInfo(b.Version, b.Revision, b.GoVersion)

	body, err := h.reg.Render()
	if err != nil {
		h.logger.Error("exporter: render failed", zap.Error(err))
		http.Error(w, "failed to render metrics", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("exporter: scrape complete",
		zap.Int("devices", len(h.targets)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)

	w.Header().Set("Content-Type", h.reg.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// scrape polls one target and records the outcome. It reports whether the
// device was online.
func (h *Handler) scrape(ctx context.Context, t Target) bool {
	snap, err := t.Reader.Status(ctx)
	if err != nil {
		h.reg.SetOnline(t.Host, t.Serial, false)
		if h.opts.ClearStaleInverters {
			h.reg.ClearInverters(t.Host, t.Serial)
		}
		h.logger.Warn("exporter: device scrape failed",
			zap.String("host", t.Host),
			zap.String("envoy", t.Serial),
			zap.Error(err),
		)
		return false
	}

	h.reg.SetOnline(t.Host, t.Serial, snap.Online)
	h.reg.SetCurrentWatts(t.Host, t.Serial, snap.WattsNow)
	h.reg.SetLifetimeWattHours(t.Host, t.Serial, snap.WattHoursLifetime)
	h.reg.SetTodayWattHours(t.Host, t.Serial, snap.WattHoursToday)
	for serial, watts := range snap.Inverters {
		h.reg.SetInverterWatts(t.Host, t.Serial, serial, watts)
	}

	h.logger.Debug("exporter: device scraped",
		zap.String("host", t.Host),
		zap.String("envoy", t.Serial),
		zap.Int64("watts_now", snap.WattsNow),
		zap.Int("inverters", len(snap.Inverters)),
	)
	return true
}
