// Package imagex is the byte-buffer image facade. An Image is immutable:
// every transformation returns a new Image and the original is untouched.
package imagex

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"github.com/ygfweb/imgkit"
	"github.com/ygfweb/imgkit/captcha"
	"github.com/ygfweb/imgkit/qr"
	"github.com/ygfweb/imgkit/raster"
)

// Engine is the raster backend used by every Image operation.
var Engine imgkit.Engine = raster.Engine{}

type Image struct {
	data []byte
}

// New copies b into a new Image. The bytes are not validated; see
// IsReallyImage.
func New(b []byte) (*Image, error) {
	if b == nil {
		return nil, imgkit.ErrInvalidArgument
	}
	return &Image{data: clone(b)}, nil
}

func LoadFile(filename string) (*Image, error) {
	b, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", imgkit.ErrFileNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	return &Image{data: b}, nil
}

// NewVerifyCode renders a CAPTCHA image (PNG) for code.
func NewVerifyCode(code string, height, width int) (*Image, error) {
	m := metrics.GetOrRegisterTimer("fn.image.NewVerifyCode", nil)
	defer m.UpdateSince(time.Now())

	opts := captcha.DefaultOptions()
	opts.Height, opts.Width = height, width

	b, err := captcha.Render(Engine, code, opts)
	if err != nil {
		return nil, err
	}
	return &Image{data: b}, nil
}

// NewQRCode renders text as a QR code JPEG. Empty text is not an error: it
// yields an empty Image.
func NewQRCode(text string, opts *qr.Options) (*Image, error) {
	m := metrics.GetOrRegisterTimer("fn.image.NewQRCode", nil)
	defer m.UpdateSince(time.Now())

	b, err := qr.Encode(Engine, text, opts)
	if errors.Is(err, qr.ErrEmptyContent) {
		return &Image{data: []byte{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Image{data: b}, nil
}

// Data returns a copy of the encoded bytes.
func (i *Image) Data() []byte {
	return clone(i.data)
}

func (i *Image) Len() int {
	return len(i.data)
}

func (i *Image) IsEmpty() bool {
	return len(i.data) == 0
}

// NewReader returns a reader over a private copy of the bytes.
func (i *Image) NewReader() *bytes.Reader {
	return bytes.NewReader(i.Data())
}

func (i *Image) WriteToFile(fn string) error {
	return os.WriteFile(fn, i.data, 0664)
}

// Resize scales the image into maxWidth x maxHeight. With keepRatio the
// result fits inside the box with the source's aspect ratio; otherwise it is
// stretched to the box exactly.
func (i *Image) Resize(maxWidth, maxHeight int, keepRatio bool) (*Image, error) {
	m := metrics.GetOrRegisterTimer("fn.image.Resize", nil)
	defer m.UpdateSince(time.Now())

	bound, err := imgkit.NewSize(maxWidth, maxHeight)
	if err != nil {
		return nil, err
	}
	b, err := imgkit.Resize(Engine, i.data, bound, keepRatio)
	if err != nil {
		return nil, err
	}
	return &Image{data: b}, nil
}

// Crop keeps the centred width x height window of the image.
func (i *Image) Crop(width, height, quality int) (*Image, error) {
	m := metrics.GetOrRegisterTimer("fn.image.Crop", nil)
	defer m.UpdateSince(time.Now())

	size, err := imgkit.NewSize(width, height)
	if err != nil {
		return nil, err
	}
	b, err := imgkit.Crop(Engine, i.data, size, quality)
	if err != nil {
		return nil, err
	}
	return &Image{data: b}, nil
}

// IsReallyImage reports whether the bytes decode as a supported image.
func (i *Image) IsReallyImage() bool {
	_, err := Engine.Decode(i.data)
	return err == nil
}

func (i *Image) Info() (*imgkit.ImageInfo, error) {
	return Engine.DecodeInfo(i.data)
}

// QRText returns the text of the QR code in the image, or "" when there is
// none or the bytes are not an image.
func (i *Image) QRText() string {
	m := metrics.GetOrRegisterTimer("fn.image.QRText", nil)
	defer m.UpdateSince(time.Now())

	text, err := qr.Decode(Engine, i.data)
	if err != nil {
		logrus.WithError(err).Debug("imagex: no qr text")
		return ""
	}
	return text
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
