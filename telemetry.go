package reachfive

import (
	"net/url"
	"runtime"
)

// Version is the SDK version reported to the backend
const Version = "1.0.0"

// SdkInfo is sent as query parameters on every backend call
type SdkInfo struct {
	Platform string
	Device   string
	Version  string
}

// DefaultSdkInfo describes the running process
func DefaultSdkInfo() SdkInfo {
	return SdkInfo{
		Platform: "go",
		Device:   runtime.GOOS + "/" + runtime.GOARCH,
		Version:  Version,
	}
}

// Query returns the telemetry parameters
func (s SdkInfo) Query() url.Values {
	q := url.Values{}
	s.AddTo(q)
	return q
}

// AddTo sets the telemetry parameters on q, skipping empty ones
func (s SdkInfo) AddTo(q url.Values) {
	if s.Platform != "" {
		q.Set("platform", s.Platform)
	}
	if s.Device != "" {
		q.Set("device", s.Device)
	}
	if s.Version != "" {
		q.Set("version", s.Version)
	}
}
