package imagex

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ygfweb/imgkit"
	"github.com/ygfweb/imgkit/qr"
)

func testImage(t *testing.T, w, h int) *Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	im, err := New(buf.Bytes())
	require.NoError(t, err)
	return im
}

func bounds(t *testing.T, im *Image) image.Rectangle {
	imfo, err := im.Info()
	require.NoError(t, err)
	return image.Rect(0, 0, imfo.Width, imfo.Height)
}

func TestNewCopiesInput(t *testing.T) {
	b := []byte{1, 2, 3}
	im, err := New(b)
	require.NoError(t, err)

	b[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, im.Data())

	d := im.Data()
	d[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, im.Data())

	_, err = New(nil)
	assert.ErrorIs(t, err, imgkit.ErrInvalidArgument)
}

func TestResize(t *testing.T) {
	im := testImage(t, 800, 600)

	out, err := im.Resize(400, 400, true)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 300), bounds(t, out))

	out, err = im.Resize(400, 400, false)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 400), bounds(t, out))

	// The original is untouched.
	assert.Equal(t, image.Rect(0, 0, 800, 600), bounds(t, im))

	_, err = im.Resize(0, 10, true)
	assert.ErrorIs(t, err, imgkit.ErrInvalidDimension)
}

func TestCrop(t *testing.T) {
	im := testImage(t, 100, 80)

	out, err := im.Crop(50, 40, 90)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 40), bounds(t, out))

	_, err = im.Crop(101, 10, 90)
	assert.ErrorIs(t, err, imgkit.ErrCropSize)
}

func TestIsReallyImage(t *testing.T) {
	assert.True(t, testImage(t, 4, 4).IsReallyImage())

	im, err := New([]byte("plain text"))
	require.NoError(t, err)
	assert.False(t, im.IsReallyImage())

	im, err = New([]byte{})
	require.NoError(t, err)
	assert.False(t, im.IsReallyImage())
}

func TestFileRoundTrip(t *testing.T) {
	im := testImage(t, 10, 10)
	fn := filepath.Join(t.TempDir(), "im.png")
	require.NoError(t, im.WriteToFile(fn))

	im2, err := LoadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, im.Data(), im2.Data())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, imgkit.ErrFileNotFound)
}

func TestNewReader(t *testing.T) {
	im := testImage(t, 3, 3)
	r := im.NewReader()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, im.Data(), b)
	assert.Equal(t, im.Len(), len(b))
}

func TestVerifyCode(t *testing.T) {
	im, err := NewVerifyCode("k4Tz", 38, 120)
	require.NoError(t, err)
	assert.True(t, im.IsReallyImage())

	imfo, err := im.Info()
	require.NoError(t, err)
	assert.Equal(t, "png", imfo.Format)
	assert.Equal(t, 120, imfo.Width)
	assert.Equal(t, 38, imfo.Height)

	_, err = NewVerifyCode("   ", 38, 120)
	assert.ErrorIs(t, err, imgkit.ErrInvalidArgument)
}

func TestQRCode(t *testing.T) {
	im, err := NewQRCode("https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", im.QRText())

	empty, err := NewQRCode("", nil)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.QRText())

	opts := qr.DefaultOptions()
	opts.Logo = testImage(t, 40, 40).Data()
	withLogo, err := NewQRCode("logo", opts)
	require.NoError(t, err)
	assert.Equal(t, "logo", withLogo.QRText())
}

func TestQRTextOnNonQR(t *testing.T) {
	assert.Equal(t, "", testImage(t, 50, 50).QRText())

	im, err := New([]byte("nope"))
	require.NoError(t, err)
	assert.Equal(t, "", im.QRText())
}
