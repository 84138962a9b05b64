package captcha

import (
	"image"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/ygfweb/imgkit"
	"github.com/ygfweb/imgkit/raster"
)

func seeded(seed uint64) *Options {
	opts := DefaultOptions()
	opts.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return opts
}

func TestRenderDefaults(t *testing.T) {
	ng := raster.Engine{}

	b, err := Render(ng, "A3xK", nil)
	require.NoError(t, err)

	imfo, err := ng.DecodeInfo(b)
	require.NoError(t, err)
	assert.Equal(t, "png", imfo.Format)
	assert.Equal(t, DefaultWidth, imfo.Width)
	assert.Equal(t, DefaultHeight, imfo.Height)
}

func TestRenderCustomSize(t *testing.T) {
	ng := raster.Engine{}
	opts := DefaultOptions()
	opts.Width, opts.Height = 200, 60

	b, err := Render(ng, "hello", opts)
	require.NoError(t, err)

	img, err := ng.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 60), img.Bounds())
}

func TestRenderInvalid(t *testing.T) {
	ng := raster.Engine{}

	for _, code := range []string{"", " ", "\t\n"} {
		_, err := Render(ng, code, nil)
		assert.ErrorIs(t, err, imgkit.ErrInvalidArgument, "%q", code)
	}

	opts := DefaultOptions()
	opts.Width = 0
	_, err := Render(ng, "abcd", opts)
	assert.ErrorIs(t, err, imgkit.ErrInvalidDimension)

	opts = DefaultOptions()
	opts.Height = -3
	_, err = Render(ng, "abcd", opts)
	assert.ErrorIs(t, err, imgkit.ErrInvalidDimension)
}

func TestRenderIsReproducibleWithSeed(t *testing.T) {
	ng := raster.Engine{}

	a, err := Render(ng, "W7pq", seeded(42))
	require.NoError(t, err)
	b, err := Render(ng, "W7pq", seeded(42))
	require.NoError(t, err)
	c, err := Render(ng, "W7pq", seeded(43))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRenderIsNotUniform(t *testing.T) {
	img, err := Draw("MNWX", seeded(7))
	require.NoError(t, err)

	// Background gradient alone gives many shades; glyphs must add dark ink.
	colors := map[[3]uint32]struct{}{}
	dark := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			colors[[3]uint32{r, g, bl}] = struct{}{}
			if r>>8 < 200 && g>>8 < 200 && bl>>8 < 200 {
				dark++
			}
		}
	}
	assert.Greater(t, len(colors), 10)
	assert.Greater(t, dark, 50)
}

func TestRenderWithFont(t *testing.T) {
	f, err := ParseFont(gobold.TTF)
	require.NoError(t, err)

	opts := seeded(1)
	opts.Font = f
	opts.FontSize = 30
	img, err := Draw("Bold", opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, DefaultWidth, DefaultHeight), img.Bounds())

	_, err = ParseFont([]byte("not a font"))
	assert.Error(t, err)
}

func TestRenderMultibyte(t *testing.T) {
	img, err := Draw("héllo", seeded(3))
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestRandomCode(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	code := RandomCode(6, r)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(CodeAlphabet, c), string(c))
	}
	assert.Equal(t, "", RandomCode(0, nil))
	assert.Len(t, RandomCode(4, nil), 4)
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("aB3x", "AB3X"))
	assert.True(t, Match("aB3x", " ab3x "))
	assert.False(t, Match("aB3x", "ab3"))
	assert.False(t, Match("", ""))
}

func TestGlyphAngleRange(t *testing.T) {
	c := &canvas{Options: *seeded(11)}

	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		a := c.angle()
		require.GreaterOrEqual(t, a, -maxAngle)
		require.LessOrEqual(t, a, maxAngle)
		seen[a] = true
	}
	assert.True(t, seen[-maxAngle])
	assert.True(t, seen[maxAngle])
	assert.Len(t, seen, 2*maxAngle+1)
}
