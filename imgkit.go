package imgkit

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
)

const (
	VERSION = "1.0.0"
)

var (
	ErrInvalidImageData = errors.New("imgkit: invalid image data")
	ErrInvalidDimension = errors.New("imgkit: width and height must be greater than zero")
	ErrInvalidArgument  = errors.New("imgkit: invalid argument")
	ErrResizeFailed     = errors.New("imgkit: resample produced no image")
	ErrCropSize         = errors.New("imgkit: crop size exceeds the source image")
	ErrFileNotFound     = errors.New("imgkit: file not found")
)

// Format is the encoded container an Engine writes.
type Format int

const (
	JPEG Format = iota
	PNG
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	default:
		return "jpg"
	}
}

func (f Format) Mimetype() string {
	switch f {
	case PNG:
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// FormatFromString accepts the usual extension spellings ("jpg", ".jpeg", "PNG").
func FormatFromString(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	}
	return JPEG, ErrInvalidArgument
}

// Engine is the raster backend every compositor draws through.
type Engine interface {
	Version() string

	Decode(b []byte) (image.Image, error)
	DecodeInfo(b []byte) (*ImageInfo, error)

	Resample(img image.Image, size Size) (image.Image, error)
	NewCanvas(size Size, bg color.Color) draw.Image
	DrawImage(dst draw.Image, src image.Image, at image.Point)

	Encode(img image.Image, format Format, quality int) ([]byte, error)
}

type ImageInfo struct {
	URL           string  `json:"url,omitempty"`
	Format        string  `json:"format"`
	Mimetype      string  `json:"mimetype"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	AspectRatio   float64 `json:"aspect_ratio"`
	ContentLength int     `json:"content_length"`
}
