// Package captcha renders distorted verification-code images.
//
// Each image is a light diagonal gradient background, one rotated glyph per
// character filled with its own dark gradient, and a random bezier curve
// stroked across the whole width.
package captcha

import (
	"image"
	"image/color"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/ygfweb/imgkit"
)

const (
	DefaultWidth    = 120
	DefaultHeight   = 38
	DefaultFontSize = 25
	DefaultMargin   = 5

	maxAngle    = 15
	strokeWidth = 2
)

// Options controls a render. Each glyph is rotated by a whole number of
// degrees between -15 and 15 inclusive.
type Options struct {
	Width    int
	Height   int
	FontSize float64
	Margin   float64

	// Font defaults to DefaultFont().
	Font *truetype.Font

	// Rand drives every random choice of a render. When nil a new generator
	// is seeded for each call. A Rand must not be shared between goroutines.
	Rand *rand.Rand
}

func DefaultOptions() *Options {
	return &Options{
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FontSize: DefaultFontSize,
		Margin:   DefaultMargin,
	}
}

func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	} else {
		opts = *DefaultOptions()
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}
	if opts.Margin < 0 {
		opts.Margin = DefaultMargin
	}
	if opts.Font == nil {
		opts.Font = defaultFont
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return opts
}

// Render draws code and returns it PNG encoded through ng.
func Render(ng imgkit.Engine, code string, opts *Options) ([]byte, error) {
	img, err := Draw(code, opts)
	if err != nil {
		return nil, err
	}
	return ng.Encode(img, imgkit.PNG, 100)
}

// Draw renders code into an in-memory image.
func Draw(code string, opts *Options) (image.Image, error) {
	if strings.TrimSpace(code) == "" {
		return nil, imgkit.ErrInvalidArgument
	}
	o := opts.withDefaults()
	if _, err := imgkit.NewSize(o.Width, o.Height); err != nil {
		return nil, err
	}

	c := &canvas{
		Options: o,
		dc:      gg.NewContext(o.Width, o.Height),
		face:    newFace(o.Font, o.FontSize),
	}
	c.dc.SetColor(color.White)
	c.dc.Clear()

	c.background()
	c.text(code)
	c.curve()

	return c.dc.Image(), nil
}

type canvas struct {
	Options
	dc   *gg.Context
	face font.Face

	// glyph layer, reused as the fill mask for each character
	layer *gg.Context
}

func (c *canvas) background() {
	w, h := float64(c.Width), float64(c.Height)
	grad := gg.NewLinearGradient(0, 0, w, h)
	grad.AddColorStop(0, c.color(200, 230))
	grad.AddColorStop(1, c.color(200, 230))

	c.dc.DrawRectangle(0, 0, w, h)
	c.dc.SetFillStyle(grad)
	c.dc.Fill()
}

func (c *canvas) text(code string) {
	c.layer = gg.NewContext(c.Width, c.Height)
	c.layer.SetFontFace(c.face)

	n := utf8.RuneCountInString(code)
	charWidth := (float64(c.Width) - c.Margin) / float64(n)

	i := 0
	for _, r := range code {
		c.glyph(string(r), charWidth*float64(i)+c.Margin)
		i++
	}
}

func (c *canvas) glyph(s string, x float64) {
	bounds, advance := font.BoundString(c.face, s)
	glyphH := float64(bounds.Max.Y-bounds.Min.Y) / 64
	textW := float64(advance) / 64
	if textW < 1 {
		textW = 1
	}

	h := float64(c.Height)
	y := h - (h-glyphH)/2
	angle := gg.Radians(float64(c.angle()))

	grad := gg.NewLinearGradient(x, h/2, x+textW, h/2)
	grad.AddColorStop(0, c.color(0, 200))
	grad.AddColorStop(1, c.color(0, 200))

	// Rotated glyph coverage goes into the layer, which then masks a
	// gradient fill of the main canvas.
	c.layer.SetColor(color.Transparent)
	c.layer.Clear()
	c.layer.SetColor(color.White)
	c.layer.RotateAbout(angle, x, y)
	c.layer.DrawString(s, x, y)
	c.layer.Identity()

	if err := c.dc.SetMask(c.layer.AsMask()); err != nil {
		return
	}
	c.dc.DrawRectangle(0, 0, float64(c.Width), h)
	c.dc.SetFillStyle(grad)
	c.dc.Fill()
	c.dc.ResetClip()
}

func (c *canvas) curve() {
	w, h := c.Width, c.Height

	x1, y1 := 0, c.intn(0, h)
	x2, y2 := c.intn(0, w), c.intn(0, h)
	x3, y3 := c.intn(0, w), c.intn(0, h)
	x4, y4 := w, c.intn(0, h)

	grad := gg.NewLinearGradient(0, 0, float64(w), float64(h))
	grad.AddColorStop(0, c.color(0, 200))
	grad.AddColorStop(1, c.color(0, 200))

	c.dc.MoveTo(float64(x1), float64(y1))
	c.dc.CubicTo(float64(x2), float64(y2), float64(x3), float64(y3), float64(x4), float64(y4))
	c.dc.SetStrokeStyle(grad)
	c.dc.SetLineWidth(strokeWidth)
	c.dc.Stroke()
}

// angle returns a glyph rotation in whole degrees, -maxAngle to maxAngle
// inclusive.
func (c *canvas) angle() int {
	return c.intn(-maxAngle, maxAngle+1)
}

// intn returns a number in [lo, hi).
func (c *canvas) intn(lo, hi int) int {
	return lo + c.Rand.IntN(hi-lo)
}

// color picks each channel in [lo, hi).
func (c *canvas) color(lo, hi int) color.Color {
	return color.RGBA{
		R: uint8(c.intn(lo, hi)),
		G: uint8(c.intn(lo, hi)),
		B: uint8(c.intn(lo, hi)),
		A: 255,
	}
}
