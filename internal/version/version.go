// Package version reports the build's version, resolved from an
// ldflags-injected value or the embedded build info.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set at build time:
// -ldflags="-X github.com/yomu-app/yomu/internal/version.Version=v1.0.0"
var Version = ""

// Info is structured version metadata, serialized by `yomu version --json`.
type Info struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
}

// GetInfo returns the version metadata for the named binary.
func GetInfo(name string) Info {
	info := Info{
		Name:    name,
		Version: Get(),
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" {
				info.Revision = setting.Value
			}
		}
	}
	return info
}

// Get returns the version string. The ldflags value wins; otherwise the
// module version or vcs revision from the build info, falling back to
// "dev" for plain local builds.
func Get() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return fmt.Sprintf("dev-%s", setting.Value[:7])
			}
		}
	}
	return "dev"
}

// String formats a one-line version summary for the named binary.
func String(name string) string {
	return fmt.Sprintf("%s version %s", name, Get())
}
