// Package config loads and watches the exporter configuration file.
//
// Top-level types:
//   - Config: listen_port, timeout, log_level, stale_inverters, systems []
//   - Device: host, url, user, pass, sn, optional timeout override
//   - Duration: time.Duration decodable from "10s" in YAML and TOML
//
// Load(path) reads the file (TOML when the extension is .toml, YAML
// otherwise), applies defaults (port 9433, 10s timeout, info level, keep
// stale inverters), then validates ports, enums and per-device fields.
// Device (host, sn) pairs must be unique since they form the label tuple.
//
// Watch(ctx, path, logger, onChange) uses fsnotify to detect file changes and
// calls onChange with the newly parsed Config. The device list is fixed for
// the lifetime of the process; callers only apply settings that are safe to
// change at runtime.
package config
