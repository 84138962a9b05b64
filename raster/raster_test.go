package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ygfweb/imgkit"
)

// quadrants returns a w x h image with red, green, blue and black quadrants.
func quadrants(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.NRGBA
			switch {
			case x < w/2 && y < h/2:
				c = color.NRGBA{255, 0, 0, 255}
			case y < h/2:
				c = color.NRGBA{0, 255, 0, 255}
			case x < w/2:
				c = color.NRGBA{0, 0, 255, 255}
			default:
				c = color.NRGBA{0, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeInvalid(t *testing.T) {
	ng := Engine{}

	_, err := ng.Decode(nil)
	assert.ErrorIs(t, err, imgkit.ErrInvalidImageData)

	_, err = ng.Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, imgkit.ErrInvalidImageData)
}

func TestDecodeInfo(t *testing.T) {
	ng := Engine{}
	b := encodePNG(t, quadrants(800, 600))

	imfo, err := ng.DecodeInfo(b)
	require.NoError(t, err)
	assert.Equal(t, "png", imfo.Format)
	assert.Equal(t, "image/png", imfo.Mimetype)
	assert.Equal(t, 800, imfo.Width)
	assert.Equal(t, 600, imfo.Height)
	assert.Equal(t, 1.3333, imfo.AspectRatio)
	assert.Equal(t, len(b), imfo.ContentLength)
}

func TestDecodeInfoJPEG(t *testing.T) {
	ng := Engine{}
	b, err := ng.Encode(quadrants(40, 20), imgkit.JPEG, 90)
	require.NoError(t, err)

	imfo, err := ng.DecodeInfo(b)
	require.NoError(t, err)
	assert.Equal(t, "jpg", imfo.Format)
	assert.Equal(t, "image/jpeg", imfo.Mimetype)
	assert.Equal(t, 2.0, imfo.AspectRatio)
}

func TestResample(t *testing.T) {
	ng := Engine{}
	out, err := ng.Resample(quadrants(100, 50), imgkit.MustSize(30, 70))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 70), out.Bounds())

	_, err = ng.Resample(image.NewNRGBA(image.Rect(0, 0, 0, 0)), imgkit.MustSize(1, 1))
	assert.ErrorIs(t, err, ErrEmptyCanvas)
}

func TestDrawImageClipsNegativeOffset(t *testing.T) {
	ng := Engine{}
	canvas := ng.NewCanvas(imgkit.MustSize(2, 2), color.White)

	// 4x4 source centred on a 2x2 canvas shows the middle four pixels.
	ng.DrawImage(canvas, quadrants(4, 4), image.Pt(-1, -1))

	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, color.NRGBAModel.Convert(canvas.At(0, 0)))
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, color.NRGBAModel.Convert(canvas.At(1, 0)))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, color.NRGBAModel.Convert(canvas.At(0, 1)))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, color.NRGBAModel.Convert(canvas.At(1, 1)))
}

func TestDrawImagePositiveOffset(t *testing.T) {
	ng := Engine{}
	canvas := ng.NewCanvas(imgkit.MustSize(6, 6), color.White)
	ng.DrawImage(canvas, quadrants(2, 2), image.Pt(2, 2))

	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, color.NRGBAModel.Convert(canvas.At(1, 1)))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, color.NRGBAModel.Convert(canvas.At(2, 2)))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, color.NRGBAModel.Convert(canvas.At(3, 3)))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, color.NRGBAModel.Convert(canvas.At(4, 4)))
}

func TestEncodeRoundTrip(t *testing.T) {
	ng := Engine{}

	for _, f := range []imgkit.Format{imgkit.JPEG, imgkit.PNG} {
		b, err := ng.Encode(quadrants(64, 32), f, 100)
		require.NoError(t, err)

		img, err := ng.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds(), f.String())
	}

	_, err := ng.Encode(image.NewNRGBA(image.Rectangle{}), imgkit.PNG, 100)
	assert.ErrorIs(t, err, ErrEmptyCanvas)
}
