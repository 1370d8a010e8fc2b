package st7789

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/flavioheleno/pidash/st7789/rgb565"
)

// spiOp is one recorded SPI transfer, tagged with the DC line level at the
// time of the transfer (false = command, true = data/parameters).
type spiOp struct {
	data bool
	w    []byte
}

// recordConn records every transfer together with the DC pin level.
type recordConn struct {
	dc  *gpiotest.Pin
	ops []spiOp
	err error
}

func (r *recordConn) String() string      { return "record" }
func (r *recordConn) Duplex() conn.Duplex { return conn.Half }

func (r *recordConn) Tx(w, rx []byte) error {
	if r.err != nil {
		return r.err
	}
	buf := make([]byte, len(w))
	copy(buf, w)
	r.ops = append(r.ops, spiOp{data: r.dc.L == gpio.High, w: buf})
	return nil
}

func (r *recordConn) TxPackets(p []spi.Packet) error { return errors.New("not implemented") }

// fakePort hands out a pre-built connection.
type fakePort struct {
	c spi.Conn
}

func (p *fakePort) String() string { return "fake" }

func (p *fakePort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	return p.c, nil
}

func newTestDev(t *testing.T, opts *Opts) (*Dev, *recordConn) {
	t.Helper()
	dc := &gpiotest.Pin{N: "DC"}
	rec := &recordConn{dc: dc}
	d, err := NewSPI(&fakePort{c: rec}, dc, opts)
	if err != nil {
		t.Fatalf("NewSPI() failed: %v", err)
	}
	return d, rec
}

// flatten concatenates recorded transfers, keeping command/data boundaries.
func flatten(ops []spiOp) []byte {
	var out []byte
	for _, op := range ops {
		out = append(out, op.w...)
	}
	return out
}

func TestOptsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Opts
		wantErr bool
	}{
		{"nil options (uses defaults)", nil, false},
		{"valid 240x280", &Opts{W: 240, H: 280}, false},
		{"valid 240x320", &Opts{W: 240, H: 320}, false},
		{"width zero", &Opts{W: 0, H: 280}, true},
		{"width > 240", &Opts{W: 320, H: 280}, true},
		{"height zero", &Opts{W: 240, H: 0}, true},
		{"height > 320", &Opts{W: 240, H: 400}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := &gpiotest.Pin{N: "DC"}
			rec := &recordConn{dc: dc}
			_, err := NewSPI(&fakePort{c: rec}, dc, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSPI() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitSequence(t *testing.T) {
	_, rec := newTestDev(t, nil)

	want := []spiOp{
		{false, []byte{cmdSWRESET}},
		{false, []byte{cmdSLPOUT}},
		{false, []byte{cmdCOLMOD}},
		{true, []byte{colmod16bit}},
		{false, []byte{cmdMADCTL}},
		{true, []byte{byte(Rotation0)}},
		{false, []byte{cmdINVON}},
		{false, []byte{cmdNORON}},
		{false, []byte{cmdDISPON}},
	}

	if len(rec.ops) != len(want) {
		t.Fatalf("init recorded %d transfers, want %d", len(rec.ops), len(want))
	}
	for i, op := range rec.ops {
		if op.data != want[i].data || !bytes.Equal(op.w, want[i].w) {
			t.Errorf("op[%d] = (data=%v, % X), want (data=%v, % X)",
				i, op.data, op.w, want[i].data, want[i].w)
		}
	}
}

func TestInitIdempotent(t *testing.T) {
	d, rec := newTestDev(t, nil)

	n := len(rec.ops)
	if err := d.Init(); err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	if len(rec.ops) != n {
		t.Errorf("second Init() sent %d extra transfers, want 0", len(rec.ops)-n)
	}
}

func TestInitRotation(t *testing.T) {
	_, rec := newTestDev(t, &Opts{W: 240, H: 280, Rotation: Rotation180})

	// MADCTL parameter is the transfer right after the MADCTL command byte.
	for i, op := range rec.ops {
		if !op.data && len(op.w) == 1 && op.w[0] == cmdMADCTL {
			if p := rec.ops[i+1]; !p.data || p.w[0] != byte(Rotation180) {
				t.Errorf("MADCTL parameter = % X (data=%v), want %02X", p.w, p.data, byte(Rotation180))
			}
			return
		}
	}
	t.Fatal("MADCTL command not found in init sequence")
}

func TestInitResetPulse(t *testing.T) {
	dc := &gpiotest.Pin{N: "DC"}
	rst := &gpiotest.Pin{N: "RST"}
	rec := &recordConn{dc: dc}
	if _, err := NewSPI(&fakePort{c: rec}, dc, &Opts{W: 240, H: 280, RST: rst}); err != nil {
		t.Fatalf("NewSPI() failed: %v", err)
	}
	// The pulse ends with the line released high.
	if rst.L != gpio.High {
		t.Errorf("RST level after init = %v, want High", rst.L)
	}
}

func TestWriteFrame(t *testing.T) {
	d, rec := newTestDev(t, nil)
	rec.ops = nil

	n, err := d.Write(make([]byte, 240*280*2))
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if n != 240*280*2 {
		t.Errorf("Write() = %d, want %d", n, 240*280*2)
	}

	// Exactly one address window: CASET [0, 239], RASET [0, 279], RAMWR.
	want := []spiOp{
		{false, []byte{cmdCASET}},
		{true, []byte{0x00, 0x00, 0x00, 0xEF}},
		{false, []byte{cmdRASET}},
		{true, []byte{0x00, 0x00, 0x01, 0x17}},
		{false, []byte{cmdRAMWR}},
	}
	if len(rec.ops) < len(want) {
		t.Fatalf("recorded %d transfers, want at least %d", len(rec.ops), len(want))
	}
	for i, w := range want {
		op := rec.ops[i]
		if op.data != w.data || !bytes.Equal(op.w, w.w) {
			t.Errorf("op[%d] = (data=%v, % X), want (data=%v, % X)", i, op.data, op.w, w.data, w.w)
		}
	}

	// The pixel burst is data-only and exactly width*height*2 bytes.
	var pixelBytes int
	for _, op := range rec.ops[len(want):] {
		if !op.data {
			t.Fatal("command transfer found inside pixel burst")
		}
		if len(op.w) > maxTxSize {
			t.Errorf("transfer of %d bytes exceeds limit %d", len(op.w), maxTxSize)
		}
		pixelBytes += len(op.w)
	}
	if pixelBytes != 240*280*2 {
		t.Errorf("pixel burst = %d bytes, want %d", pixelBytes, 240*280*2)
	}
}

func TestWriteInvalidBufferSize(t *testing.T) {
	d, _ := newTestDev(t, nil)

	for _, n := range []int{0, 100, 240*280*2 - 1, 240*280*2 + 1} {
		if _, err := d.Write(make([]byte, n)); err == nil {
			t.Errorf("Write() with %d bytes succeeded, want error", n)
		}
	}
}

func TestDrawRGBAFastPath(t *testing.T) {
	d, rec := newTestDev(t, nil)
	rec.ops = nil

	img := image.NewRGBA(d.Bounds())
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{0xFF, 0x00, 0x00, 0xFF}), image.Point{}, draw.Src)

	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}

	all := flatten(rec.ops)
	// Skip the window setup (5+4+1 command/param bytes before RAMWR data).
	pixels := all[len(all)-240*280*2:]
	for i := 0; i < 8; i += 2 {
		if pixels[i] != 0xF8 || pixels[i+1] != 0x00 {
			t.Fatalf("pixel %d = %02X%02X, want F800 (red in RGB565)", i/2, pixels[i], pixels[i+1])
		}
	}
}

func TestDrawRGB565FastPath(t *testing.T) {
	d, rec := newTestDev(t, nil)
	rec.ops = nil

	img := rgb565.New(d.Bounds())
	for i := range img.Pix {
		img.Pix[i] = 0xA5
	}
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}

	all := flatten(rec.ops)
	pixels := all[len(all)-240*280*2:]
	for i, b := range pixels {
		if b != 0xA5 {
			t.Fatalf("pixel byte %d = %02X, want A5", i, b)
		}
	}
}

func TestDrawEmptyIntersection(t *testing.T) {
	d, rec := newTestDev(t, nil)
	rec.ops = nil

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if err := d.Draw(image.Rect(500, 500, 510, 510), img, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}
	if len(rec.ops) != 0 {
		t.Errorf("Draw() outside bounds sent %d transfers, want 0", len(rec.ops))
	}
}

func TestHalt(t *testing.T) {
	d, rec := newTestDev(t, nil)
	rec.ops = nil

	if err := d.Halt(); err != nil {
		t.Fatalf("Halt() failed: %v", err)
	}
	want := [][]byte{{cmdDISPOFF}, {cmdSLPIN}}
	if len(rec.ops) != len(want) {
		t.Fatalf("Halt() sent %d transfers, want %d", len(rec.ops), len(want))
	}
	for i, w := range want {
		if rec.ops[i].data || !bytes.Equal(rec.ops[i].w, w) {
			t.Errorf("op[%d] = (data=%v, % X), want command % X", i, rec.ops[i].data, rec.ops[i].w, w)
		}
	}

	// Operations fail once halted.
	if _, err := d.Write(make([]byte, 240*280*2)); err == nil {
		t.Error("Write should fail when halted")
	}
	if err := d.Draw(d.Bounds(), image.NewRGBA(d.Bounds()), image.Point{}); err == nil {
		t.Error("Draw should fail when halted")
	}
	if err := d.Invert(true); err == nil {
		t.Error("Invert should fail when halted")
	}

	// Halt is a no-op the second time.
	n := len(rec.ops)
	if err := d.Halt(); err != nil {
		t.Fatalf("second Halt() failed: %v", err)
	}
	if len(rec.ops) != n {
		t.Errorf("second Halt() sent %d extra transfers, want 0", len(rec.ops)-n)
	}
}

func TestSetBacklight(t *testing.T) {
	d, _ := newTestDev(t, nil)
	if err := d.SetBacklight(true); err == nil {
		t.Error("SetBacklight without a backlight pin should fail")
	}

	bl := &gpiotest.Pin{N: "BL"}
	dc := &gpiotest.Pin{N: "DC"}
	rec := &recordConn{dc: dc}
	d, err := NewSPI(&fakePort{c: rec}, dc, &Opts{W: 240, H: 280, BL: bl})
	if err != nil {
		t.Fatalf("NewSPI() failed: %v", err)
	}
	if bl.L != gpio.High {
		t.Errorf("backlight after init = %v, want High", bl.L)
	}
	if err := d.SetBacklight(false); err != nil {
		t.Fatalf("SetBacklight(false) failed: %v", err)
	}
	if bl.L != gpio.Low {
		t.Errorf("backlight = %v, want Low", bl.L)
	}
}

func TestWriteErrorPropagates(t *testing.T) {
	d, rec := newTestDev(t, nil)
	rec.err = errors.New("bus gone")

	if _, err := d.Write(make([]byte, 240*280*2)); err == nil {
		t.Error("Write() with failing bus succeeded, want error")
	}
	// The device stays usable: clearing the fault lets the next frame through.
	rec.err = nil
	if _, err := d.Write(make([]byte, 240*280*2)); err != nil {
		t.Errorf("Write() after recovery failed: %v", err)
	}
}

func TestDevBounds(t *testing.T) {
	d, _ := newTestDev(t, nil)
	if got, want := d.Bounds(), image.Rect(0, 0, 240, 280); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}

func TestDevString(t *testing.T) {
	d, _ := newTestDev(t, nil)
	if got, want := d.String(), "st7789.Dev{240x280}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDevColorModel(t *testing.T) {
	d, _ := newTestDev(t, nil)
	if d.ColorModel() != rgb565.RGB565Model {
		t.Error("ColorModel() did not return RGB565Model")
	}
}
