// Package version exposes build metadata for the envoy_build_info metric and
// the --version flag. Version, Revision and BuildTime are set at build time:
//
//	go build -ldflags "-X github.com/obsidianstack/envoy-exporter/internal/version.Version=1.2.0 \
//	  -X github.com/obsidianstack/envoy-exporter/internal/version.Revision=$(git rev-parse HEAD)"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildTime = ""
)

// Info is a resolved copy of the build metadata.
type Info struct {
	Version   string
	Revision  string
	BuildTime string
	GoVersion string
}

// Get returns the build metadata. When Revision was not injected via ldflags
// it falls back to the VCS revision embedded by the Go toolchain, if any.
func Get() Info {
	info := Info{
		Version:   Version,
		Revision:  Revision,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if info.Revision == "" {
		info.Revision = vcsRevision()
	}
	return info
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// String renders the multi-line block printed by --version and the usage text.
func (i Info) String() string {
	if i.BuildTime == "" {
		return fmt.Sprintf("  version: %s\n", i.Version)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  version   : %s\n", i.Version)
	fmt.Fprintf(&b, "  revision  : %s\n", i.Revision)
	fmt.Fprintf(&b, "  build time: %s\n", i.BuildTime)
	return b.String()
}
