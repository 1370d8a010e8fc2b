// Package st7789 controls a ST7789 TFT LCD via SPI.
//
// The ST7789 is a 16-bit color (RGB565) controller supporting panels up to
// 240×320 pixels. The common 1.69" round-corner panel exposes a 240×280
// window. This driver implements the display.Drawer interface from periph.io.
//
// # Display Characteristics
//
// - 16-bit color, 5-6-5 RGB layout, transmitted big-endian
// - Support for various resolutions (typically 240×280 or 240×320)
// - Orientation control via the MADCTL register (0/90/180/270 degrees)
// - Display color inversion (most IPS panels are wired inverted)
// - Optional backlight control through a GPIO pin
//
// # Hardware Connection
//
// Connect the ST7789 display to your system via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCL/CLK     → SPI Clock (SCLK)
//	SDA/MOSI    → SPI Data (MOSI)
//	DC          → GPIO (any available pin)
//	CS          → SPI Chip Select (or GND if always selected)
//	RES         → Optional: GPIO for hardware reset
//	BLK         → Optional: GPIO for backlight control
//
// # Basic Usage
//
// Example of creating and using the display:
//
//	package main
//
//	import (
//		"image"
//		"image/color"
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"github.com/flavioheleno/pidash/st7789"
//		"github.com/flavioheleno/pidash/st7789/rgb565"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Open SPI bus
//		spiBus, _ := spireg.Open("")
//
//		// Get Data/Command GPIO pin
//		dcPin := gpioreg.ByName("GPIO25")
//
//		// Create device
//		dev, _ := st7789.NewSPI(spiBus, dcPin, &st7789.Opts{
//			W: 240,
//			H: 280,
//		})
//		defer dev.Halt()
//
//		// Create a frame in the display's native pixel format
//		img := rgb565.New(dev.Bounds())
//
//		// Fill it with a horizontal gradient
//		for y := 0; y < 280; y++ {
//			for x := 0; x < 240; x++ {
//				img.Set(x, y, color.RGBA{uint8(x), 0, uint8(255 - x), 0xFF})
//			}
//		}
//
//		// Display the image
//		dev.Draw(dev.Bounds(), img, image.Point{})
//	}
//
// # Using Hardware Reset Pin (Optional)
//
// If your display has a reset (RES) pin connected to a GPIO, you can provide
// it in the Opts struct for clean hardware initialization:
//
//	rstPin := gpioreg.ByName("GPIO27")
//
//	dev, _ := st7789.NewSPI(spiBus, dcPin, &st7789.Opts{
//		W:   240,
//		H:   280,
//		RST: rstPin,  // Optional reset pin
//	})
//
// The driver will automatically perform a hardware reset pulse (high, low,
// high with 100ms holds) during initialization. If RST is nil or not
// provided, the driver skips the hardware reset and relies on the software
// reset command.
//
// # Drawing
//
// Frames are always transmitted whole: the driver sets the address window to
// the full panel extent and streams every pixel, so a failed transfer leaves
// the previously displayed frame intact rather than a torn one.
//
// Write raw pixel data directly when the buffer is already in big-endian
// RGB565 order:
//
//	pixels := make([]byte, 240*280*2) // 134400 bytes for 240×280
//	// ... fill pixels ...
//	dev.Write(pixels)
//
// Draw accepts any image.Image. Full-frame *rgb565.Image sources are
// streamed without conversion and full-frame *image.RGBA sources are
// converted in a single pass; anything else is composed into an internal
// staging buffer first:
//
//	dev.Draw(dev.Bounds(), myImage, image.Point{})
//
// # Colors
//
// The display consumes 16-bit RGB565 pixels. Use the rgb565 package for the
// native color type and frame buffer:
//
//	// Pack 8-bit channels
//	blue := rgb565.From(88, 166, 255)
//
// Standard Go colors are automatically converted when drawn.
//
// # Backlight
//
// When a backlight pin is provided, it is switched on during initialization
// and off by Halt. It can also be driven directly:
//
//	dev.SetBacklight(false)
//
// # Display Resolution
//
// This driver supports configurable resolutions. Common options:
//
//	Opts{W: 240, H: 280} // 1.69" panel (default)
//	Opts{W: 240, H: 320} // 2.0" panel
//	Opts{W: 240, H: 240} // 1.3" panel
//
// Width must be ≤240. Height must be ≤320.
//
// # Datasheet
//
// For detailed register descriptions and timing information, see:
// https://www.rhydolabz.com/documents/33/ST7789.pdf
//
// # Compatibility with periph.io
//
// This driver implements the display.Drawer interface from periph.io:
// https://pkg.go.dev/periph.io/x/conn/v3/display
//
// It can be used with any periph.io tool or library expecting a display.Drawer.
package st7789
