package envoy

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is one device's telemetry as read during a single scrape.
type Snapshot struct {
	Online            bool
	WattHoursLifetime int64
	WattHoursToday    int64
	WattsNow          int64

	// Inverters maps inverter serial number to its last reported watts.
	Inverters map[string]int64
}

// Fetcher is the subset of Client used by Reader.
type Fetcher interface {
	Fetch(ctx context.Context, suffix string) (json.RawMessage, error)
}

// Reader combines the production and inverter endpoints of one device into
// a Snapshot.
type Reader struct {
	client Fetcher
}

// NewReader returns a Reader that fetches through client.
func NewReader(client Fetcher) *Reader {
	return &Reader{client: client}
}

// Status reads both endpoints. The snapshot is all-or-nothing: if either call
// fails, Status returns the error and no snapshot.
func (r *Reader) Status(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Inverters: make(map[string]int64)}

	if err := r.production(ctx, snap); err != nil {
		return nil, err
	}
	if err := r.inverters(ctx, snap); err != nil {
		return nil, err
	}

	snap.Online = true
	return snap, nil
}

func (r *Reader) production(ctx context.Context, snap *Snapshot) error {
	raw, err := r.client.Fetch(ctx, PathProduction)
	if err != nil {
		return fmt.Errorf("production: %w", err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("production: %w: %w", ErrSchema, err)
	}
	for _, f := range []struct {
		key string
		dst *int64
	}{
		{"wattHoursLifetime", &snap.WattHoursLifetime},
		{"wattHoursToday", &snap.WattHoursToday},
		{"wattsNow", &snap.WattsNow},
	} {
		if err := field(obj, f.key, f.dst); err != nil {
			return fmt.Errorf("production: %w", err)
		}
	}
	return nil
}

func (r *Reader) inverters(ctx context.Context, snap *Snapshot) error {
	raw, err := r.client.Fetch(ctx, PathInverters)
	if err != nil {
		return fmt.Errorf("inverters: %w", err)
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("inverters: %w: %w", ErrSchema, err)
	}
	if list == nil {
		return fmt.Errorf("inverters: %w: expected an array, got null", ErrSchema)
	}

	for i, obj := range list {
		var (
			serial string
			watts  int64
		)
		if err := field(obj, "serialNumber", &serial); err != nil {
			return fmt.Errorf("inverters: element %d: %w", i, err)
		}
		if err := field(obj, "lastReportWatts", &watts); err != nil {
			return fmt.Errorf("inverters: element %d: %w", i, err)
		}
		// Duplicate serials: the later element wins.
		snap.Inverters[serial] = watts
	}
	return nil
}

// field decodes obj[key] into dst. Keys are matched exactly; decoding into a
// struct would also accept keys that differ only in case.
func field[T int64 | string](obj map[string]json.RawMessage, key string, dst *T) error {
	v, ok := obj[key]
	if !ok || string(v) == "null" {
		return fmt.Errorf("%w: missing %s", ErrSchema, key)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSchema, key, err)
	}
	return nil
}
