package captcha

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var defaultFont *truetype.Font

func init() {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("captcha: embedded font: %v", err))
	}
	defaultFont = f
}

// DefaultFont is the embedded Go Regular typeface. The returned font is
// shared and must not be modified.
func DefaultFont() *truetype.Font {
	return defaultFont
}

// ParseFont parses TrueType font bytes for use in Options.Font.
func ParseFont(b []byte) (*truetype.Font, error) {
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("captcha: parse font: %w", err)
	}
	return f, nil
}

// newFace builds a fresh face; faces cache glyphs and are not safe to share
// across goroutines.
func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingNone})
}
