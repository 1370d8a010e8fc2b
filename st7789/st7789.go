package st7789

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/flavioheleno/pidash/st7789/rgb565"
)

// Controller command set. Parameter bytes are sent with the DC line high,
// command bytes with it low.
const (
	cmdSWRESET = 0x01 // Software reset
	cmdSLPIN   = 0x10 // Sleep in
	cmdSLPOUT  = 0x11 // Sleep out
	cmdNORON   = 0x13 // Normal display mode on
	cmdINVOFF  = 0x20 // Display inversion off
	cmdINVON   = 0x21 // Display inversion on
	cmdDISPOFF = 0x28 // Display off
	cmdDISPON  = 0x29 // Display on
	cmdCASET   = 0x2A // Column address set
	cmdRASET   = 0x2B // Row address set
	cmdRAMWR   = 0x2C // Memory write
	cmdMADCTL  = 0x36 // Memory access control
	cmdCOLMOD  = 0x3A // Interface pixel format
)

// colmod16bit selects the 16-bit/pixel (RGB565) interface format.
const colmod16bit = 0x05

// maxTxSize is the largest single SPI transfer. Linux spidev defaults to a
// 4096-byte buffer, so pixel bursts are split at this boundary.
const maxTxSize = 4096

// Rotation selects the panel orientation via the MADCTL register.
type Rotation byte

const (
	Rotation0   Rotation = 0x00
	Rotation90  Rotation = 0x60
	Rotation180 Rotation = 0xC0
	Rotation270 Rotation = 0xA0
)

// Opts is the configuration for the ST7789 display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 240, must be ≤240)
	H int // Height (default: 280, must be ≤320)

	// Panel orientation
	Rotation Rotation

	// Optional hardware reset pin
	RST gpio.PinIO
	// Optional backlight pin
	BL gpio.PinOut
}

// Dev is the device handle for the ST7789 display.
type Dev struct {
	// Communication
	c   conn.Conn   // SPI connection
	dc  gpio.PinOut // Data/Command pin
	rst gpio.PinIO  // Reset pin (optional)
	bl  gpio.PinOut // Backlight pin (optional)

	// Display geometry
	rect     image.Rectangle
	rotation Rotation

	// Staging buffer for Draw's conversion path, lazily allocated.
	next *rgb565.Image

	// State
	initialized bool
	halted      bool
}

// NewSPI creates a new ST7789 device connected via SPI.
//
// The SPI port is configured for 24MHz, Mode0 (CPOL=0, CPHA=0), 8-bit
// transfers. The dc (Data/Command) GPIO pin must be provided and configured
// as an output.
//
// opts can be nil to use defaults (240x280 display, no reset or backlight
// pin).
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{W: 240, H: 280}
	}

	if opts.W <= 0 || opts.W > 240 {
		return nil, errors.New("st7789: width must be between 1 and 240")
	}
	if opts.H <= 0 || opts.H > 320 {
		return nil, errors.New("st7789: height must be between 1 and 320")
	}

	c, err := p.Connect(24*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	d := &Dev{
		c:        c,
		dc:       dc,
		rst:      opts.RST,
		bl:       opts.BL,
		rect:     image.Rect(0, 0, opts.W, opts.H),
		rotation: opts.Rotation,
	}

	if err := d.Init(); err != nil {
		return nil, err
	}

	return d, nil
}

// Init performs the controller bring-up: hardware reset pulse (if a reset
// pin was provided), sleep-out, 16-bit pixel format, orientation, display
// inversion, normal display mode, display on and backlight on.
//
// Init is idempotent: once the bring-up has completed successfully,
// subsequent calls are no-ops. It must not be called concurrently.
func (d *Dev) Init() error {
	if d.initialized {
		return nil
	}

	if d.rst != nil {
		if err := d.reset(); err != nil {
			return err
		}
	}

	steps := []struct {
		cmd    byte
		params []byte
		delay  time.Duration
	}{
		{cmdSWRESET, nil, 100 * time.Millisecond},
		{cmdSLPOUT, nil, 50 * time.Millisecond},
		{cmdCOLMOD, []byte{colmod16bit}, 0},
		{cmdMADCTL, []byte{byte(d.rotation)}, 0},
		{cmdINVON, nil, 0},
		{cmdNORON, nil, 0},
		{cmdDISPON, nil, 10 * time.Millisecond},
	}
	for _, s := range steps {
		if err := d.sendCommand(s.cmd, s.params...); err != nil {
			return err
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}

	if d.bl != nil {
		if err := d.bl.Out(gpio.High); err != nil {
			return fmt.Errorf("st7789: failed to enable backlight: %w", err)
		}
	}

	d.initialized = true
	return nil
}

// reset pulses the hardware reset line.
func (d *Dev) reset() error {
	for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := d.rst.Out(l); err != nil {
			return fmt.Errorf("st7789: failed to toggle RST: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

// sendCommand sends a command byte followed by its parameter bytes.
// The command goes out with DC low, parameters with DC high.
func (d *Dev) sendCommand(cmd byte, params ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}
	return d.sendData(params)
}

// sendData sends a slice of data bytes with DC high, chunked to the SPI
// transfer limit.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > maxTxSize {
			n = maxTxSize
		}
		if err := d.c.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// setWindow sets the addressable column/row window and starts a RAM write.
func (d *Dev) setWindow(x0, y0, x1, y1 int) error {
	if err := d.sendCommand(cmdCASET,
		byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.sendCommand(cmdRASET,
		byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.sendCommand(cmdRAMWR)
}

// writeFrame sets the window to the full panel extent and streams one
// frame of RGB565 pixel data.
func (d *Dev) writeFrame(pixels []byte) error {
	if err := d.setWindow(0, 0, d.rect.Dx()-1, d.rect.Dy()-1); err != nil {
		return err
	}
	return d.sendData(pixels)
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.RGB565Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Write writes raw pixel data to the display in big-endian RGB565 format.
// The data must be exactly d.rect.Dx() * d.rect.Dy() * 2 bytes.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted {
		return 0, errors.New("st7789: halted")
	}
	if len(pixels) != d.rect.Dx()*d.rect.Dy()*2 {
		return 0, errors.New("st7789: invalid buffer size")
	}
	if err := d.writeFrame(pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Draw draws an image onto the display.
//
// Full-frame *rgb565.Image sources are streamed directly. Full-frame
// *image.RGBA sources are converted in one pass. Anything else is composed
// into an internal staging buffer first. The frame is always transmitted
// whole: a failed write leaves the previously displayed frame intact.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errors.New("st7789: halted")
	}

	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	zero := image.Point{}
	if img, ok := src.(*rgb565.Image); ok && dst == d.rect && sp == zero && img.Rect == d.rect {
		return d.writeFrame(img.Pix)
	}

	if d.next == nil {
		d.next = rgb565.New(d.rect)
	}

	if img, ok := src.(*image.RGBA); ok && dst == d.rect && sp == zero && img.Rect == d.rect {
		rgbaToRGB565(img, d.next.Pix)
		return d.writeFrame(d.next.Pix)
	}

	draw.Draw(d.next, dst, src, sp, draw.Src)
	return d.writeFrame(d.next.Pix)
}

// rgbaToRGB565 converts a zero-origin RGBA image to big-endian RGB565 bytes.
func rgbaToRGB565(src *image.RGBA, dst []byte) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	i := 0
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			v := uint16(row[x]>>3)<<11 | uint16(row[x+1]>>2)<<5 | uint16(row[x+2]>>3)
			dst[i] = byte(v >> 8)
			dst[i+1] = byte(v)
			i += 2
		}
	}
}

// SetBacklight switches the backlight pin, when one was provided.
func (d *Dev) SetBacklight(on bool) error {
	if d.bl == nil {
		return errors.New("st7789: no backlight pin configured")
	}
	l := gpio.Low
	if on {
		l = gpio.High
	}
	return d.bl.Out(l)
}

// Invert inverts the display colors. The panel is driven with inversion on
// by default; some panel variants need it off.
func (d *Dev) Invert(invert bool) error {
	if d.halted {
		return errors.New("st7789: halted")
	}
	cmd := byte(cmdINVOFF)
	if invert {
		cmd = cmdINVON
	}
	return d.sendCommand(cmd)
}

// Halt powers off the display: backlight off, display off, sleep in.
// After calling Halt, the device does not respond to further commands
// until it is re-created.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	d.halted = true
	if d.bl != nil {
		if err := d.bl.Out(gpio.Low); err != nil {
			return err
		}
	}
	if err := d.sendCommand(cmdDISPOFF); err != nil {
		return err
	}
	return d.sendCommand(cmdSLPIN)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("st7789.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
