// Package cli wires configuration, hardware and the dashboard loop behind a
// cobra command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/flavioheleno/pidash/internal/config"
	"github.com/flavioheleno/pidash/internal/dashboard"
	"github.com/flavioheleno/pidash/internal/logger"
	"github.com/flavioheleno/pidash/internal/render"
	"github.com/flavioheleno/pidash/internal/stats"
	"github.com/flavioheleno/pidash/st7789"
)

// Flags. File values are the base; any flag the user set wins.
var (
	configFlag         string
	spiFlag            string
	dcPinFlag          string
	rstPinFlag         string
	blPinFlag          string
	rotationFlag       int
	updateIntervalFlag time.Duration
	pageDurationFlag   time.Duration
	pagesFlag          []string
	netInterfaceFlag   string
	nasPathFlag        string
	diskPathFlag       string
)

var rootCmd = &cobra.Command{
	Use:   "pidash",
	Short: "System status dashboard for ST7789 LCDs",
	Long: `pidash renders rotating status pages (system, storage, docker) on a
240x280 ST7789 SPI display attached to a Raspberry Pi.

Configuration is read from .pidash.yaml in the current directory or
~/.config/pidash/config.yaml; flags override file values. Set PIDASH_DEBUG=1
for verbose logging.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configFlag, "config", "", "config file path")
	f.StringVar(&spiFlag, "spi", "", "SPI port name (empty selects the first available)")
	f.StringVar(&dcPinFlag, "dc-pin", "", "data/command GPIO pin name")
	f.StringVar(&rstPinFlag, "rst-pin", "", "reset GPIO pin name")
	f.StringVar(&blPinFlag, "bl-pin", "", "backlight GPIO pin name")
	f.IntVar(&rotationFlag, "rotation", 0, "panel rotation in degrees (0, 90, 180, 270)")
	f.DurationVar(&updateIntervalFlag, "update-interval", 0, "time between frames")
	f.DurationVar(&pageDurationFlag, "page-duration", 0, "time each page stays up")
	f.StringSliceVar(&pagesFlag, "pages", nil, "page rotation order (system, storage, docker)")
	f.StringVar(&netInterfaceFlag, "interface", "", "network interface to monitor")
	f.StringVar(&nasPathFlag, "nas-path", "", "NAS mount point to monitor")
	f.StringVar(&diskPathFlag, "disk-path", "", "filesystem shown as primary storage")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyFlagOverrides copies explicitly set flags over the file config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("spi", func() { cfg.SPI = spiFlag })
	set("dc-pin", func() { cfg.DCPin = dcPinFlag })
	set("rst-pin", func() { cfg.RSTPin = rstPinFlag })
	set("bl-pin", func() { cfg.BLPin = blPinFlag })
	set("rotation", func() { cfg.Rotation = rotationFlag })
	set("update-interval", func() { cfg.UpdateInterval = updateIntervalFlag })
	set("page-duration", func() { cfg.PageDuration = pageDurationFlag })
	set("pages", func() { cfg.Pages = pagesFlag })
	set("interface", func() { cfg.NetInterface = netInterfaceFlag })
	set("nas-path", func() { cfg.NASPath = nasPathFlag })
	set("disk-path", func() { cfg.DiskPath = diskPathFlag })
}

// rotationFromDegrees maps the config value to the driver constant. Validate
// has already rejected anything else.
func rotationFromDegrees(deg int) st7789.Rotation {
	switch deg {
	case 90:
		return st7789.Rotation90
	case 180:
		return st7789.Rotation180
	case 270:
		return st7789.Rotation270
	default:
		return st7789.Rotation0
	}
}

func runDashboard(cmd *cobra.Command) error {
	log := logger.NewEnvLogger("[pidash]")

	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	pages, err := cfg.PageList()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initialize host drivers: %w", err)
	}

	port, err := spireg.Open(cfg.SPI)
	if err != nil {
		return fmt.Errorf("open SPI port %q: %w", cfg.SPI, err)
	}
	defer port.Close()

	dc := gpioreg.ByName(cfg.DCPin)
	if dc == nil {
		return fmt.Errorf("GPIO pin %q not found", cfg.DCPin)
	}

	opts := &st7789.Opts{
		W:        render.DefaultWidth,
		H:        render.DefaultHeight,
		Rotation: rotationFromDegrees(cfg.Rotation),
	}
	if cfg.RSTPin != "" {
		if opts.RST = gpioreg.ByName(cfg.RSTPin); opts.RST == nil {
			return fmt.Errorf("GPIO pin %q not found", cfg.RSTPin)
		}
	}
	if cfg.BLPin != "" {
		var bl gpio.PinIO
		if bl = gpioreg.ByName(cfg.BLPin); bl == nil {
			return fmt.Errorf("GPIO pin %q not found", cfg.BLPin)
		}
		opts.BL = bl
	}

	dev, err := st7789.NewSPI(port, dc, opts)
	if err != nil {
		return fmt.Errorf("initialize display: %w", err)
	}
	log.Info("display ready: %s on %s", dev, port)
	defer func() {
		if cfg.BacklightOffOnExit {
			if err := dev.Halt(); err != nil {
				log.Warn("display shutdown: %v", err)
			}
			return
		}
		// Leave the last frame and backlight as they are.
		log.Info("leaving display on")
	}()

	sampler := stats.NewSampler(stats.Options{
		Interface:      cfg.NetInterface,
		DiskPath:       cfg.DiskPath,
		NASPath:        cfg.NASPath,
		CommandTimeout: cfg.CommandTimeout,
	}, logger.NewEnvLogger("[stats]"))

	renderer := render.NewRenderer(render.Options{}, logger.NewEnvLogger("[render]"))

	sched, err := dashboard.New(dev, sampler, renderer, dashboard.Options{
		UpdateInterval:   cfg.UpdateInterval,
		PageDuration:     cfg.PageDuration,
		Pages:            pages,
		HistorySize:      cfg.HistorySize,
		MaxWriteFailures: cfg.MaxWriteFailures,
	}, logger.NewEnvLogger("[dashboard]"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return sched.Run(ctx)
}
