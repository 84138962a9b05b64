// Package qr encodes text into QR symbols, optionally with a logo in the
// centre, and reads them back.
package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"unicode/utf8"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode/decoder"
	"github.com/sirupsen/logrus"

	"github.com/ygfweb/imgkit"
)

const (
	DefaultWidth   = 360
	DefaultHeight  = 360
	DefaultQuality = 100

	// quiet zone added around symbols before a retry decode
	decodePadding = 16
)

var (
	ErrEmptyContent = errors.New("qr: empty content")
	ErrEncodeFailed = errors.New("qr: unable to encode symbol")
	ErrNotFound     = errors.New("qr: no symbol found")
)

type Options struct {
	Width  int
	Height int

	// Margin is the quiet zone in modules. Zero draws the symbol edge to edge.
	Margin int

	// Quality of the JPEG output.
	Quality int

	// Logo is an encoded image drawn unscaled in the centre of the symbol.
	// Bytes that do not decode are ignored.
	Logo []byte
}

func DefaultOptions() *Options {
	return &Options{
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		Quality: DefaultQuality,
	}
}

// Encode renders text as a level H QR symbol and returns it as a JPEG.
func Encode(ng imgkit.Engine, text string, opts *Options) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if _, err := imgkit.NewSize(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	if opts.Quality < 0 || opts.Quality > 100 || opts.Margin < 0 {
		return nil, imgkit.ErrInvalidArgument
	}

	symbol, err := Symbol(text, opts.Width, opts.Height, opts.Margin)
	if err != nil {
		return nil, err
	}
	size, err := imgkit.SizeOf(symbol)
	if err != nil {
		return nil, ErrEncodeFailed
	}

	canvas := ng.NewCanvas(size, color.White)
	ng.DrawImage(canvas, symbol, image.Point{})

	if len(opts.Logo) > 0 {
		logo, err := ng.Decode(opts.Logo)
		if err != nil {
			logrus.WithError(err).Debug("qr: logo skipped")
		} else if logoSize, err := imgkit.SizeOf(logo); err == nil {
			ng.DrawImage(canvas, logo, imgkit.CenterOffset(logoSize, size))
		}
	}

	return ng.Encode(canvas, imgkit.JPEG, opts.Quality)
}

// Symbol returns the bare black-on-white QR symbol for text. The writer
// scales modules to the largest whole multiple that fits width x height.
// ASCII text is written without an ECI segment; anything else is declared
// as UTF-8 so readers can recover it.
func Symbol(text string, width, height, margin int) (*image.Gray, error) {
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_ERROR_CORRECTION: decoder.ErrorCorrectionLevel_H,
		gozxing.EncodeHintType_MARGIN:           margin,
	}
	if !isASCII(text) {
		hints[gozxing.EncodeHintType_CHARACTER_SET] = "UTF-8"
	}

	bm, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, width, height, hints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	if bm == nil || bm.GetWidth() <= 0 || bm.GetHeight() <= 0 {
		return nil, ErrEncodeFailed
	}

	w, h := bm.GetWidth(), bm.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bm.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
