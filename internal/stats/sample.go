// Package stats collects system metrics for the dashboard. Every metric is
// gathered best-effort: a source that fails or is absent marks only its own
// field unavailable and never fails the whole sample.
package stats

import "time"

// Gauge is a single percentage or temperature reading. OK is false when the
// underlying source was unavailable at sampling time.
type Gauge struct {
	Value float64
	OK    bool
}

// Storage describes one filesystem.
type Storage struct {
	UsedBytes  uint64
	TotalBytes uint64
	Percent    float64
	OK         bool
}

// Network holds throughput rates derived from two consecutive interface
// counter readings. The first sample after startup has OK=false since there
// is no baseline to diff against.
type Network struct {
	RxBytesPerSec float64
	TxBytesPerSec float64
	OK            bool
}

// Containers summarizes the local Docker daemon state. Names lists the
// running containers, sorted.
type Containers struct {
	Total   int
	Running int
	Stopped int
	Names   []string
	OK      bool
}

// HostInfo carries identity and load information for the header lines.
type HostInfo struct {
	Hostname      string
	UptimeSeconds uint64
	Load1         float64
	OK            bool
}

// Sample is an immutable snapshot of all metrics taken at one instant.
// Renderers read it; nothing mutates it after collection.
type Sample struct {
	Taken time.Time

	CPU     Gauge // percent, clamped to [0, 100]
	Memory  Gauge // percent, clamped to [0, 100]
	CPUTemp Gauge // degrees Celsius
	GPUTemp Gauge // degrees Celsius

	Disk Storage // root filesystem
	NAS  Storage // configured mount, OK=false when not mounted

	Net    Network
	Docker Containers
	Host   HostInfo
}

// clampPercent bounds a percentage to [0, 100]. Counter wraparound and
// rounding in upstream sources can produce values slightly outside the range.
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
