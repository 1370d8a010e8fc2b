package stats

// DefaultHistorySize is the number of recent readings kept for sparklines.
const DefaultHistorySize = 20

// History is a bounded window of recent CPU and memory percentages, oldest
// first. Once full, pushing evicts the oldest entry.
type History struct {
	cap int
	cpu []float64
	mem []float64
}

// NewHistory creates a History holding up to size entries. Sizes below one
// fall back to DefaultHistorySize.
func NewHistory(size int) *History {
	if size < 1 {
		size = DefaultHistorySize
	}
	return &History{
		cap: size,
		cpu: make([]float64, 0, size),
		mem: make([]float64, 0, size),
	}
}

// Push appends the sample's CPU and memory percentages. Unavailable gauges
// are recorded as zero so the window stays aligned with time.
func (h *History) Push(sm Sample) {
	h.cpu = push(h.cpu, h.cap, gaugeValue(sm.CPU))
	h.mem = push(h.mem, h.cap, gaugeValue(sm.Memory))
}

func gaugeValue(g Gauge) float64 {
	if !g.OK {
		return 0
	}
	return g.Value
}

func push(s []float64, max int, v float64) []float64 {
	if len(s) == max {
		copy(s, s[1:])
		s[len(s)-1] = v
		return s
	}
	return append(s, v)
}

// Len returns the number of entries currently held.
func (h *History) Len() int {
	return len(h.cpu)
}

// CPU returns the CPU window, oldest first. The slice is a copy.
func (h *History) CPU() []float64 {
	return append([]float64(nil), h.cpu...)
}

// Memory returns the memory window, oldest first. The slice is a copy.
func (h *History) Memory() []float64 {
	return append([]float64(nil), h.mem...)
}
