// Package buildinfo holds build-time metadata injected at startup
package buildinfo

import (
	"runtime"
	"time"

	"github.com/google/uuid"
)

const unknown = "unknown"

// Info describes the running binary
type Info struct {
	Version    string    `json:"version"`
	BuildDate  string    `json:"buildDate"`
	InstanceID string    `json:"instanceId"` // random per process, used to tag telemetry and MQTT events
	GoVersion  string    `json:"goVersion"`
	StartedAt  time.Time `json:"startedAt"`
}

// New fills in defaults for values the linker did not set
func New(version, buildDate string) *Info {
	if version == "" {
		version = unknown
	}
	if buildDate == "" {
		buildDate = unknown
	}
	return &Info{
		Version:    version,
		BuildDate:  buildDate,
		InstanceID: uuid.NewString(),
		GoVersion:  runtime.Version(),
		StartedAt:  time.Now(),
	}
}

// GetVersion returns the version, or "unknown" on a nil receiver
func (i *Info) GetVersion() string {
	if i == nil {
		return unknown
	}
	return i.Version
}

// Uptime returns the time since startup
func (i *Info) Uptime() time.Duration {
	if i == nil || i.StartedAt.IsZero() {
		return 0
	}
	return time.Since(i.StartedAt)
}
