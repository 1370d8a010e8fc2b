// Package render turns metric samples into dashboard frames. A Renderer is
// built once, holds the fonts and theme, and produces a full 240x280 RGBA
// frame per call. Output is deterministic for a given page, sample and
// history window.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/flavioheleno/pidash/internal/logger"
	"github.com/flavioheleno/pidash/internal/stats"
)

// Default frame size, matching the 1.69" panel.
const (
	DefaultWidth  = 240
	DefaultHeight = 280
)

// placeholder is rendered in place of any value whose source was unavailable.
const placeholder = "--"

// Options configures a Renderer.
type Options struct {
	Width  int
	Height int
	// Theme overrides the default palette when non-nil.
	Theme *Theme
}

// Renderer draws dashboard pages.
type Renderer struct {
	w, h  int
	theme Theme
	fonts *fontSet
	log   logger.Logger
}

// NewRenderer creates a Renderer and loads fonts once. A nil log discards
// messages.
func NewRenderer(opts Options, log logger.Logger) *Renderer {
	if log == nil {
		log = logger.Noop()
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	theme := DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	return &Renderer{
		w:     opts.Width,
		h:     opts.Height,
		theme: theme,
		fonts: loadFonts(log),
		log:   log,
	}
}

// Render produces one full frame for the given page. The frame is always
// exactly Width x Height; the clock in the header comes from the sample's
// timestamp, not the wall clock.
func (r *Renderer) Render(page Page, sm stats.Sample, hist *stats.History) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, r.w, r.h))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(r.theme.Background), image.Point{}, draw.Src)

	gc := draw2dimg.NewGraphicContext(frame)

	title := page.Title()
	if page == PageSystem && sm.Host.OK && sm.Host.Hostname != "" {
		title = sm.Host.Hostname
	}
	r.header(frame, title, sm)

	switch page {
	case PageStorage:
		r.storagePage(frame, gc, sm)
	case PageDocker:
		r.dockerPage(frame, gc, sm)
	default:
		r.systemPage(frame, gc, sm, hist)
	}
	return frame
}

// header draws the page title, the sample clock, host identity and the rule
// line.
func (r *Renderer) header(frame *image.RGBA, title string, sm stats.Sample) {
	r.text(frame, title, 14, 14, r.fonts.large, r.theme.Text)

	clock := sm.Taken.Format("15:04:05")
	cw := textWidth(r.fonts.small, clock)
	r.text(frame, clock, r.w-cw-14, 16, r.fonts.small, r.theme.TextDim)

	if sm.Host.OK {
		up := fmt.Sprintf("up %s  load %.2f", uptimeText(sm.Host.UptimeSeconds), sm.Host.Load1)
		uw := textWidth(r.fonts.small, up)
		r.text(frame, up, r.w-uw-14, 30, r.fonts.small, r.theme.TextMuted)
	}

	rule := image.Rect(14, 46, r.w-14, 48)
	draw.Draw(frame, rule, image.NewUniform(r.theme.Rule), image.Point{}, draw.Src)
}

// systemPage: CPU and memory pills with sparklines, temperature and network
// pills along the bottom.
func (r *Renderer) systemPage(frame *image.RGBA, gc *draw2dimg.GraphicContext, sm stats.Sample, hist *stats.History) {
	var cpuWin, memWin []float64
	if hist != nil {
		cpuWin = hist.CPU()
		memWin = hist.Memory()
	}

	r.statPill(frame, gc, 12, 60, 216, 68, "CPU", gaugeText(sm.CPU, "%"), r.theme.CPU, cpuWin)
	r.statPill(frame, gc, 12, 140, 216, 68, "Memory", gaugeText(sm.Memory, "%"), r.theme.Memory, memWin)

	// Temperature pill.
	r.pill(gc, 12, 228, 105, 42, r.theme.Temp)
	r.textCentered(frame, gaugeText(sm.CPUTemp, "°C"), 64, 233, r.fonts.medium, r.theme.Text)
	tempLabel := "Temp"
	if sm.GPUTemp.OK {
		tempLabel = fmt.Sprintf("GPU %.0f°C", sm.GPUTemp.Value)
	}
	r.textCentered(frame, tempLabel, 64, 252, r.fonts.small, r.theme.TextDim)

	// Network pill.
	r.pill(gc, 123, 228, 105, 42, r.theme.Net)
	r.textCentered(frame, "Rx "+rateText(sm.Net, sm.Net.RxBytesPerSec), 175, 233, r.fonts.small, r.theme.Text)
	r.textCentered(frame, "Tx "+rateText(sm.Net, sm.Net.TxBytesPerSec), 175, 250, r.fonts.small, r.theme.Text)
}

// storagePage: root filesystem as the main pill, NAS used/free below, alert
// pills when either source is unavailable.
func (r *Renderer) storagePage(frame *image.RGBA, gc *draw2dimg.GraphicContext, sm stats.Sample) {
	if !sm.Disk.OK {
		r.alertPill(frame, gc, 110, "Storage Unavailable")
		return
	}

	r.pill(gc, 12, 60, 216, 95, r.theme.StorageMain)
	r.textCentered(frame, fmt.Sprintf("%.0f%%", sm.Disk.Percent), 120, 68, r.fonts.big, r.theme.Text)
	r.textCentered(frame, "Disk Used", 120, 104, r.fonts.small, r.theme.Text)
	usage := humanize.Bytes(sm.Disk.UsedBytes) + " / " + humanize.Bytes(sm.Disk.TotalBytes)
	r.textCentered(frame, usage, 120, 128, r.fonts.small, r.theme.Text)

	if !sm.NAS.OK {
		r.alertPill(frame, gc, 190, "NAS Not Mounted")
		return
	}

	free := sm.NAS.TotalBytes - sm.NAS.UsedBytes
	r.pill(gc, 12, 170, 105, 58, r.theme.StorageUsed)
	r.textCentered(frame, "NAS Used", 64, 178, r.fonts.small, r.theme.Text)
	r.textCentered(frame, humanize.Bytes(sm.NAS.UsedBytes), 64, 196, r.fonts.medium, r.theme.Text)

	r.pill(gc, 123, 170, 105, 58, r.theme.StorageFree)
	r.textCentered(frame, "NAS Free", 175, 178, r.fonts.small, r.theme.Text)
	r.textCentered(frame, humanize.Bytes(free), 175, 196, r.fonts.medium, r.theme.Text)
}

// dockerPage: total/active/stopped counters and the running container list.
func (r *Renderer) dockerPage(frame *image.RGBA, gc *draw2dimg.GraphicContext, sm stats.Sample) {
	if !sm.Docker.OK {
		r.alertPill(frame, gc, 110, "Docker Error")
		return
	}

	r.countPill(frame, gc, 12, "Total", sm.Docker.Total, r.theme.DockerTotal)
	r.countPill(frame, gc, 86, "Active", sm.Docker.Running, r.theme.DockerActive)
	r.countPill(frame, gc, 160, "Off", sm.Docker.Stopped, r.theme.DockerOff)

	r.text(frame, "Running Containers", 14, 130, r.fonts.medium, r.theme.TextDim)

	if sm.Docker.Running == 0 {
		r.pill(gc, 12, 154, float64(r.w-24), 44, r.theme.DockerIdle)
		r.textCentered(frame, "None running", r.w/2, 166, r.fonts.medium, r.theme.Text)
		return
	}

	const maxListed = 4
	y := 154
	shown := sm.Docker.Names
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	for idx, name := range shown {
		if y > r.h-45 {
			break
		}
		c := r.theme.Containers[idx%len(r.theme.Containers)]
		r.pill(gc, 12, float64(y), float64(r.w-24), 34, c)

		name = truncateName(name, 22)
		nw := textWidth(r.fonts.medium, name)
		startX := 12 + (r.w-24-(nw+12))/2

		gc.SetFillColor(r.theme.Text)
		draw2dkit.Circle(gc, float64(startX+3), float64(y+17), 3)
		gc.Fill()
		r.text(frame, name, startX+12, y+9, r.fonts.medium, r.theme.Text)

		y += 42
	}

	if extra := sm.Docker.Running - maxListed; extra > 0 {
		r.textCentered(frame, fmt.Sprintf("+%d more", extra), r.w/2, y+4, r.fonts.small, r.theme.TextMuted)
	}
}

// statPill draws a wide pill with a centered label, a large value and a
// sparkline of the recent history along the bottom.
func (r *Renderer) statPill(frame *image.RGBA, gc *draw2dimg.GraphicContext, x, y, w, h float64, label, value string, c color.RGBA, window []float64) {
	r.pill(gc, x, y, w, h, c)
	r.textCentered(frame, label, int(x+w/2), int(y)+7, r.fonts.small, r.theme.Text)
	r.textCentered(frame, value, int(x+w/2), int(y)+21, r.fonts.big, r.theme.Text)
	r.sparkline(gc, x+14, y+h-20, w-28, 12, window)
}

// countPill draws one of the small counter pills on the Docker page.
func (r *Renderer) countPill(frame *image.RGBA, gc *draw2dimg.GraphicContext, x int, label string, n int, c color.RGBA) {
	r.pill(gc, float64(x), 60, 68, 56, c)
	r.textCentered(frame, label, x+34, 66, r.fonts.small, r.theme.Text)
	r.textCentered(frame, fmt.Sprintf("%d", n), x+34, 82, r.fonts.large, r.theme.Text)
}

// alertPill draws a centered full-width alert.
func (r *Renderer) alertPill(frame *image.RGBA, gc *draw2dimg.GraphicContext, y int, msg string) {
	r.pill(gc, 20, float64(y), float64(r.w-40), 60, r.theme.Alert)
	r.textCentered(frame, msg, r.w/2, y+22, r.fonts.medium, r.theme.Text)
}

// pill fills a full-radius rounded rectangle.
func (r *Renderer) pill(gc *draw2dimg.GraphicContext, x, y, w, h float64, c color.RGBA) {
	gc.SetFillColor(c)
	draw2dkit.RoundedRectangle(gc, x, y, x+w, y+h, h, h)
	gc.Fill()
}

// sparkline strokes the history window as a connected polyline scaled into
// the given rectangle, oldest point on the left. Fewer than two points draw
// nothing.
func (r *Renderer) sparkline(gc *draw2dimg.GraphicContext, x, y, w, h float64, window []float64) {
	if len(window) < 2 {
		return
	}
	step := w / float64(len(window)-1)

	gc.SetStrokeColor(r.theme.Text)
	gc.SetLineWidth(2)
	for i, v := range window {
		px := x + float64(i)*step
		py := y + h - (clamp01(v/100) * h)
		if i == 0 {
			gc.MoveTo(px, py)
			continue
		}
		gc.LineTo(px, py)
	}
	gc.Stroke()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// text draws s with (x, y) as the top-left corner of the glyph box.
func (r *Renderer) text(dst *image.RGBA, s string, x, y int, face font.Face, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Round()),
	}
	d.DrawString(s)
}

// textCentered draws s horizontally centered on cx with y as the top edge.
func (r *Renderer) textCentered(dst *image.RGBA, s string, cx, y int, face font.Face, c color.Color) {
	r.text(dst, s, cx-textWidth(face, s)/2, y, face, c)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Round()
}

// gaugeText formats a gauge value with its unit, or the placeholder when the
// source was unavailable.
func gaugeText(g stats.Gauge, unit string) string {
	if !g.OK {
		return placeholder
	}
	return fmt.Sprintf("%.0f%s", g.Value, unit)
}

// uptimeText compresses an uptime into the two most significant units.
func uptimeText(secs uint64) string {
	d := time.Duration(secs) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// rateText formats one direction of network throughput.
func rateText(n stats.Network, v float64) string {
	if !n.OK {
		return placeholder
	}
	return humanize.Bytes(uint64(v)) + "/s"
}

// truncateName bounds container names to the pill width.
func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
