// Package buildinfo holds build-time metadata injected with -ldflags.
package buildinfo

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/tphakala/mediscan/internal/buildinfo.Version=v1.0.0"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// Info is the metadata of the running binary plus the per-installation
// system id used for telemetry.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	SystemID  string `json:"systemId,omitempty" yaml:"systemId,omitempty"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Current returns the build metadata with the given system id.
func Current(systemID string) Info {
	return Info{
		Version:   orUnknown(Version),
		BuildDate: orUnknown(BuildDate),
		SystemID:  systemID,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// UserAgent is sent on outbound requests.
func (i Info) UserAgent() string {
	return fmt.Sprintf("MediScan/%s (%s)", i.Version, i.Platform)
}

func (i Info) String() string {
	return fmt.Sprintf("MediScan %s, built %s, %s %s", i.Version, i.BuildDate, i.GoVersion, i.Platform)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
