package qr

import (
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/ygfweb/imgkit"
)

// Decode reads the first QR symbol found in an encoded image.
func Decode(ng imgkit.Engine, data []byte) (string, error) {
	img, err := ng.Decode(data)
	if err != nil {
		return "", err
	}
	return DecodeImage(img)
}

// DecodeImage tries progressively more lenient readings of img: both
// binarizers, then a copy with a white quiet zone for symbols drawn edge to
// edge, then the pure barcode mode.
func DecodeImage(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", imgkit.ErrInvalidImageData
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	pure := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_PURE_BARCODE: true,
	}

	padded := pad(img, decodePadding)

	attempts := []struct {
		img   image.Image
		hints map[gozxing.DecodeHintType]interface{}
	}{
		{img, hints},
		{padded, hints},
		{img, pure},
	}
	for _, a := range attempts {
		if text, ok := read(a.img, a.hints); ok {
			return text, nil
		}
	}
	return "", ErrNotFound
}

func read(img image.Image, hints map[gozxing.DecodeHintType]interface{}) (string, bool) {
	src := gozxing.NewLuminanceSourceFromImage(img)
	binarizers := []gozxing.Binarizer{
		gozxing.NewHybridBinarizer(src),
		gozxing.NewGlobalHistgramBinarizer(src),
	}

	reader := qrcode.NewQRCodeReader()
	for _, b := range binarizers {
		bmp, err := gozxing.NewBinaryBitmap(b)
		if err != nil {
			continue
		}
		result, err := reader.Decode(bmp, hints)
		if err == nil && result != nil {
			return result.GetText(), true
		}
	}
	return "", false
}

func pad(img image.Image, n int) image.Image {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()+2*n, b.Dy()+2*n))
	for i := range dst.Pix {
		dst.Pix[i] = 0xff
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X+n, y-b.Min.Y+n, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return dst
}
