package render

import (
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"github.com/flavioheleno/pidash/internal/logger"
)

// Default font locations on Raspberry Pi OS.
const (
	fontRegularPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	fontBoldPath    = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
)

// fontSet holds the faces used across all pages.
type fontSet struct {
	big    font.Face // large pill values
	large  font.Face // header title, medium values
	medium font.Face // container names, alerts
	small  font.Face // labels, clock
}

// loadFonts parses the system TrueType fonts once at startup. When they are
// missing (non-Pi hosts, minimal images) every slot falls back to the fixed
// 7x13 face so rendering keeps working.
func loadFonts(log logger.Logger) *fontSet {
	fallback := basicfont.Face7x13
	fs := &fontSet{big: fallback, large: fallback, medium: fallback, small: fallback}

	bold := parseFont(fontBoldPath, log)
	regular := parseFont(fontRegularPath, log)
	if bold == nil && regular == nil {
		log.Warn("no TrueType fonts found, using built-in face")
		return fs
	}
	if bold == nil {
		bold = regular
	}
	if regular == nil {
		regular = bold
	}

	fs.big = newFace(bold, 26, fallback, log)
	fs.large = newFace(bold, 18, fallback, log)
	fs.medium = newFace(regular, 14, fallback, log)
	fs.small = newFace(regular, 12, fallback, log)
	return fs
}

func parseFont(path string, log logger.Logger) *opentype.Font {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Debug("font %s unavailable: %v", path, err)
		return nil
	}
	f, err := opentype.Parse(raw)
	if err != nil {
		log.Warn("font %s unreadable: %v", path, err)
		return nil
	}
	return f
}

func newFace(f *opentype.Font, size float64, fallback font.Face, log logger.Logger) font.Face {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Warn("font face (%gpt): %v", size, err)
		return fallback
	}
	return face
}
