package stats

import (
	"context"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/docker"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/flavioheleno/pidash/internal/logger"
)

// thermalZonePath is the sysfs fallback for the SoC temperature when no
// named sensor is reported.
const thermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

// cpuSensorKeys are the sensor names reported for the SoC thermal zone on
// the boards this targets, checked in order.
var cpuSensorKeys = []string{"cpu_thermal", "cpu-thermal", "coretemp", "soc_thermal"}

// Options configures a Sampler.
type Options struct {
	// Interface is the network interface to derive throughput from.
	Interface string
	// DiskPath is the filesystem to report as primary storage.
	DiskPath string
	// NASPath is the mount point to report as NAS storage. Empty disables
	// the NAS gauge.
	NASPath string
	// CommandTimeout bounds external reads (Docker daemon, vcgencmd).
	CommandTimeout time.Duration
}

// Sampler collects Samples. It keeps the previous network counters between
// calls to derive throughput rates. Not safe for concurrent use; the
// dashboard loop calls it from a single goroutine.
type Sampler struct {
	opts Options
	log  logger.Logger

	prevNet   *net.IOCountersStat
	prevNetAt time.Time

	// Overridable in tests.
	thermalPath string
}

// NewSampler creates a Sampler. A nil log discards messages.
func NewSampler(opts Options, log logger.Logger) *Sampler {
	if log == nil {
		log = logger.Noop()
	}
	if opts.DiskPath == "" {
		opts.DiskPath = "/"
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 2 * time.Second
	}
	return &Sampler{
		opts:        opts,
		log:         log,
		thermalPath: thermalZonePath,
	}
}

// Sample collects a full snapshot. Every source is best-effort: a failure
// marks that field unavailable and is logged at debug level.
func (s *Sampler) Sample(ctx context.Context) Sample {
	now := time.Now()
	sm := Sample{Taken: now}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		sm.CPU = Gauge{Value: clampPercent(pct[0]), OK: true}
	} else {
		s.log.Debug("cpu percent unavailable: %v", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sm.Memory = Gauge{Value: clampPercent(vm.UsedPercent), OK: true}
	} else {
		s.log.Debug("memory unavailable: %v", err)
	}

	sm.CPUTemp = s.cpuTemp(ctx)
	sm.GPUTemp = s.gpuTemp(ctx)
	sm.Disk = s.storage(ctx, s.opts.DiskPath, false)
	if s.opts.NASPath != "" {
		sm.NAS = s.storage(ctx, s.opts.NASPath, true)
	}
	sm.Net = s.network(ctx, now)
	sm.Docker = s.containers(ctx)
	sm.Host = s.hostInfo(ctx)

	return sm
}

// cpuTemp reads the SoC temperature from the named sensors, falling back to
// the raw thermal zone file.
func (s *Sampler) cpuTemp(ctx context.Context) Gauge {
	if temps, err := host.SensorsTemperaturesWithContext(ctx); err == nil {
		for _, key := range cpuSensorKeys {
			for _, t := range temps {
				if t.SensorKey == key && t.Temperature > 0 {
					return Gauge{Value: t.Temperature, OK: true}
				}
			}
		}
	}

	v, err := readThermalZone(s.thermalPath)
	if err != nil {
		s.log.Debug("cpu temperature unavailable: %v", err)
		return Gauge{}
	}
	return Gauge{Value: v, OK: true}
}

// readThermalZone parses a sysfs thermal zone file, which holds the
// temperature in millidegrees Celsius.
func readThermalZone(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, err
	}
	return milli / 1000, nil
}

// gpuTemp shells out to vcgencmd, which is the only interface the VideoCore
// firmware exposes. Missing binary or timeout just yields an unavailable gauge.
func (s *Sampler) gpuTemp(ctx context.Context) Gauge {
	out, err := s.runCmd(ctx, "vcgencmd", "measure_temp")
	if err != nil {
		s.log.Debug("gpu temperature unavailable: %v", err)
		return Gauge{}
	}
	v, err := parseVcgencmdTemp(out)
	if err != nil {
		s.log.Debug("gpu temperature parse: %v", err)
		return Gauge{}
	}
	return Gauge{Value: v, OK: true}
}

// parseVcgencmdTemp extracts degrees Celsius from vcgencmd output of the
// form "temp=48.2'C".
func parseVcgencmdTemp(out string) (float64, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "temp=")
	out = strings.TrimSuffix(out, "'C")
	return strconv.ParseFloat(out, 64)
}

// storage reports usage for one filesystem. When requireMount is set, the
// path must be an actual mount point; a NAS path that exists but sits on the
// root filesystem reports unavailable rather than the root usage.
func (s *Sampler) storage(ctx context.Context, path string, requireMount bool) Storage {
	if requireMount && !s.isMounted(ctx, path) {
		return Storage{}
	}
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil || u.Total == 0 {
		s.log.Debug("disk usage for %s unavailable: %v", path, err)
		return Storage{}
	}
	return Storage{
		UsedBytes:  u.Used,
		TotalBytes: u.Total,
		Percent:    clampPercent(u.UsedPercent),
		OK:         true,
	}
}

// isMounted reports whether path appears in the partition table.
func (s *Sampler) isMounted(ctx context.Context, path string) bool {
	parts, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return false
	}
	clean := strings.TrimRight(path, "/")
	for _, p := range parts {
		if p.Mountpoint == path || p.Mountpoint == clean {
			return true
		}
	}
	return false
}

// network derives byte rates from the delta against the previous reading.
func (s *Sampler) network(ctx context.Context, now time.Time) Network {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		s.log.Debug("network counters unavailable: %v", err)
		return Network{}
	}
	var cur *net.IOCountersStat
	for i := range counters {
		if counters[i].Name == s.opts.Interface {
			cur = &counters[i]
			break
		}
	}
	if cur == nil {
		s.log.Debug("interface %s not found", s.opts.Interface)
		return Network{}
	}

	prev, prevAt := s.prevNet, s.prevNetAt
	s.prevNet, s.prevNetAt = cur, now

	if prev == nil {
		return Network{}
	}
	return netRate(*prev, *cur, now.Sub(prevAt))
}

// netRate computes byte-per-second rates from two counter readings. Counter
// resets (reboot of the interface) read as negative deltas and clamp to zero.
func netRate(prev, cur net.IOCountersStat, dt time.Duration) Network {
	secs := dt.Seconds()
	if secs <= 0 {
		return Network{}
	}
	var rx, tx float64
	if cur.BytesRecv >= prev.BytesRecv {
		rx = float64(cur.BytesRecv-prev.BytesRecv) / secs
	}
	if cur.BytesSent >= prev.BytesSent {
		tx = float64(cur.BytesSent-prev.BytesSent) / secs
	}
	return Network{RxBytesPerSec: rx, TxBytesPerSec: tx, OK: true}
}

// containers queries the Docker daemon under the command timeout.
func (s *Sampler) containers(ctx context.Context) Containers {
	cctx, cancel := context.WithTimeout(ctx, s.opts.CommandTimeout)
	defer cancel()

	list, err := docker.GetDockerStatWithContext(cctx)
	if err != nil {
		s.log.Debug("docker unavailable: %v", err)
		return Containers{}
	}
	return summarizeContainers(list)
}

// summarizeContainers folds the raw container list into counts plus the
// sorted names of the running ones.
func summarizeContainers(list []docker.CgroupDockerStat) Containers {
	c := Containers{Total: len(list), OK: true}
	for _, ct := range list {
		if ct.Running {
			c.Running++
			name := ct.Name
			if name == "" {
				name = ct.ContainerID
			}
			c.Names = append(c.Names, name)
		}
	}
	c.Stopped = c.Total - c.Running
	sort.Strings(c.Names)
	return c
}

// hostInfo gathers identity and load for the header.
func (s *Sampler) hostInfo(ctx context.Context) HostInfo {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		s.log.Debug("host info unavailable: %v", err)
		return HostInfo{}
	}
	h := HostInfo{Hostname: info.Hostname, UptimeSeconds: info.Uptime, OK: true}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		h.Load1 = avg.Load1
	}
	return h
}

// runCmd executes an external command under the configured timeout.
func (s *Sampler) runCmd(ctx context.Context, name string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.CommandTimeout)
	defer cancel()
	out, err := exec.CommandContext(cctx, name, args...).Output()
	if cctx.Err() == context.DeadlineExceeded {
		return "", cctx.Err()
	}
	return string(out), err
}
