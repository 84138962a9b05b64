// Package raster is the pure-Go imgkit.Engine, built on imaging and
// golang.org/x/image.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ygfweb/imgkit"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyCanvas = errors.New("raster: canvas has no pixels")
)

// Engine decodes GIF, JPEG, PNG, BMP, TIFF and WebP, and encodes JPEG and PNG.
// It holds no state and is safe for concurrent use.
type Engine struct {
	// Filter used by Resample. Zero value means Lanczos.
	Filter imaging.ResampleFilter
}

var _ imgkit.Engine = Engine{}

func (ng Engine) Version() string {
	return fmt.Sprintf("raster/%s imaging/v1.6", imgkit.VERSION)
}

func (ng Engine) Decode(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, imgkit.ErrInvalidImageData
	}
	img, err := imaging.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imgkit.ErrInvalidImageData, err)
	}
	return img, nil
}

// DecodeInfo reads only the image header.
func (ng Engine) DecodeInfo(b []byte) (*imgkit.ImageInfo, error) {
	if len(b) == 0 {
		return nil, imgkit.ErrInvalidImageData
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imgkit.ErrInvalidImageData, err)
	}
	size, err := imgkit.NewSize(cfg.Width, cfg.Height)
	if err != nil {
		return nil, imgkit.ErrInvalidImageData
	}

	mimetype := "image/" + format
	format = strings.ToLower(format)
	if format == "jpeg" {
		format = "jpg"
	}

	imfo := &imgkit.ImageInfo{
		Format:        format,
		Mimetype:      mimetype,
		Width:         size.Width(),
		Height:        size.Height(),
		AspectRatio:   imgkit.RoundedAspectRatio(size),
		ContentLength: len(b),
	}
	return imfo, nil
}

func (ng Engine) Resample(img image.Image, size imgkit.Size) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyCanvas
	}
	filter := ng.Filter
	if filter.Kernel == nil {
		filter = imaging.Lanczos
	}
	return imaging.Resize(img, size.Width(), size.Height(), filter), nil
}

func (ng Engine) NewCanvas(size imgkit.Size, bg color.Color) draw.Image {
	return imaging.New(size.Width(), size.Height(), bg)
}

// DrawImage composites src over dst with src's top-left corner at the given
// point. Parts of src falling outside dst are clipped.
func (ng Engine) DrawImage(dst draw.Image, src image.Image, at image.Point) {
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	draw.Draw(dst, r, src, sb.Min, draw.Over)
}

func (ng Engine) Encode(img image.Image, format imgkit.Format, quality int) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyCanvas
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case imgkit.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
