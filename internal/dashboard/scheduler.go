// Package dashboard drives the sample/render/transmit cycle. A single
// goroutine owns the display: every tick it takes a fresh sample, renders
// the current page and transmits one whole frame. Pages rotate round-robin
// on successful frames only.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/flavioheleno/pidash/internal/logger"
	"github.com/flavioheleno/pidash/internal/render"
	"github.com/flavioheleno/pidash/internal/stats"
)

// Display transmits rendered frames. *st7789.Dev satisfies it.
type Display interface {
	Draw(dst image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
}

// Sampler produces metric snapshots.
type Sampler interface {
	Sample(ctx context.Context) stats.Sample
}

// Renderer turns a snapshot into a frame.
type Renderer interface {
	Render(page render.Page, sm stats.Sample, hist *stats.History) *image.RGBA
}

// Defaults applied by New for unset options.
const (
	DefaultUpdateInterval   = time.Second
	DefaultPageDuration     = 8 * time.Second
	DefaultMaxWriteFailures = 5
)

// Options configures the scheduler loop.
type Options struct {
	// UpdateInterval is the tick period: one sample and one frame per tick.
	UpdateInterval time.Duration
	// PageDuration is how long each page stays up. Must be at least
	// UpdateInterval; the tick count per page is the integer quotient.
	PageDuration time.Duration
	// Pages is the rotation order. Empty means all pages.
	Pages []render.Page
	// HistorySize bounds the sparkline window.
	HistorySize int
	// MaxWriteFailures is the number of consecutive failed frame
	// transmissions tolerated before Run gives up.
	MaxWriteFailures int
}

// Scheduler owns the display loop state. Create with New, drive with Run.
type Scheduler struct {
	display  Display
	sampler  Sampler
	renderer Renderer
	log      logger.Logger

	opts         Options
	ticksPerPage int
	history      *stats.History

	pageIdx  int
	elapsed  int
	failures int
}

// New validates the options and builds a Scheduler. A nil log discards
// messages.
func New(d Display, s Sampler, r Renderer, opts Options, log logger.Logger) (*Scheduler, error) {
	if d == nil || s == nil || r == nil {
		return nil, errors.New("dashboard: display, sampler and renderer are required")
	}
	if log == nil {
		log = logger.Noop()
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = DefaultUpdateInterval
	}
	if opts.PageDuration <= 0 {
		opts.PageDuration = DefaultPageDuration
	}
	if opts.PageDuration < opts.UpdateInterval {
		return nil, fmt.Errorf("dashboard: page duration %v is shorter than update interval %v",
			opts.PageDuration, opts.UpdateInterval)
	}
	if len(opts.Pages) == 0 {
		opts.Pages = render.AllPages()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = stats.DefaultHistorySize
	}
	if opts.MaxWriteFailures <= 0 {
		opts.MaxWriteFailures = DefaultMaxWriteFailures
	}

	return &Scheduler{
		display:      d,
		sampler:      s,
		renderer:     r,
		log:          log,
		opts:         opts,
		ticksPerPage: int(opts.PageDuration / opts.UpdateInterval),
		history:      stats.NewHistory(opts.HistorySize),
	}, nil
}

// Run executes the loop until ctx is cancelled (returns nil) or the display
// stops accepting frames (returns an error). The first frame goes out
// immediately; cancellation is only observed at tick boundaries, so a frame
// in flight always completes or fails whole.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("dashboard started: %d pages, %v per page, frame every %v",
		len(s.opts.Pages), s.opts.PageDuration, s.opts.UpdateInterval)

	ticker := time.NewTicker(s.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		if err := s.step(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			s.log.Info("dashboard stopping: %v", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// step executes one tick: sample, render, transmit, advance. Page time only
// passes on successful transmissions, so a flaky bus retries the same page
// with fresh data instead of silently skipping it.
func (s *Scheduler) step(ctx context.Context) error {
	sm := s.sampler.Sample(ctx)
	s.history.Push(sm)

	page := s.opts.Pages[s.pageIdx]
	frame := s.renderer.Render(page, sm, s.history)

	if err := s.display.Draw(s.display.Bounds(), frame, image.Point{}); err != nil {
		s.failures++
		s.log.Warn("frame write failed (%d/%d): %v", s.failures, s.opts.MaxWriteFailures, err)
		if s.failures >= s.opts.MaxWriteFailures {
			return fmt.Errorf("dashboard: display unresponsive after %d consecutive write failures: %w",
				s.failures, err)
		}
		return nil
	}
	if s.failures > 0 {
		s.log.Info("display recovered after %d failed writes", s.failures)
		s.failures = 0
	}

	s.elapsed++
	if s.elapsed >= s.ticksPerPage {
		s.elapsed = 0
		s.pageIdx = (s.pageIdx + 1) % len(s.opts.Pages)
		s.log.Debug("switching to page %s", s.opts.Pages[s.pageIdx])
	}
	return nil
}
