package imgkit

import (
	"fmt"
	"image"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	OpResize = "resize"
	OpCrop   = "crop"

	DefaultQuality = 100
)

// Size is a validated width/height pair. The zero value is not a valid Size;
// use NewSize.
type Size struct {
	width, height int
}

func NewSize(width, height int) (Size, error) {
	if width <= 0 || height <= 0 {
		return Size{}, ErrInvalidDimension
	}
	return Size{width, height}, nil
}

// MustSize is NewSize for constant dimensions.
func MustSize(width, height int) Size {
	s, err := NewSize(width, height)
	if err != nil {
		panic(err)
	}
	return s
}

// SizeOf returns the size of an image's bounds.
func SizeOf(img image.Image) (Size, error) {
	b := img.Bounds()
	return NewSize(b.Dx(), b.Dy())
}

// ParseSize parses "WxH". Fractional parts are truncated, so "500.5x300"
// yields 500x300.
func ParseSize(q string) (Size, error) {
	wh := strings.Split(q, "x")
	if len(wh) != 2 {
		return Size{}, fmt.Errorf("invalid size query: %q", q)
	}

	var dims [2]int
	for i, s := range wh {
		if s == "" {
			return Size{}, fmt.Errorf("invalid size query: %q: %w", q, ErrInvalidDimension)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Size{}, fmt.Errorf("invalid size query: %q", q)
		}
		dims[i] = int(f)
	}
	return NewSize(dims[0], dims[1])
}

func (s Size) Width() int  { return s.width }
func (s Size) Height() int { return s.height }

func (s Size) IsZero() bool {
	return s.width == 0 && s.height == 0
}

func (s Size) AspectRatio() float64 {
	return float64(s.width) / float64(s.height)
}

func (s Size) Equal(other Size) bool {
	return s.width == other.width && s.height == other.height
}

// Covers reports whether s is at least as large as other on both axes.
func (s Size) Covers(other Size) bool {
	return s.width >= other.width && s.height >= other.height
}

func (s Size) Rect() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.width, s.height)
}

// SameRateSize fits source inside bound keeping the source aspect ratio,
// using integer arithmetic. Width is clamped first, then height; the second
// pass may leave the width above bound when the source is taller than bound.
func SameRateSize(source, bound Size) (Size, error) {
	w, h := source.width, source.height
	if w > bound.width {
		w = bound.width
		h = w * source.height / source.width
	}
	if h > bound.height {
		h = bound.height
		w = h * source.width / source.height
	}
	return NewSize(w, h)
}

// CenterOffset is the top-left point at which inner is drawn so that it is
// centred on outer. Either coordinate is negative when inner is larger.
func CenterOffset(inner, outer Size) image.Point {
	return image.Point{
		X: (outer.width - inner.width) / 2,
		Y: (outer.height - inner.height) / 2,
	}
}

// Sizing is the request-level description of a resize or crop.
type Sizing struct {
	Size      Size
	Op        string
	KeepRatio bool
	Quality   int
	Format    string
}

func NewSizing() *Sizing {
	return &Sizing{Op: OpResize, Quality: DefaultQuality}
}

func NewSizingFromQuery(q string) (*Sizing, error) {
	sz := NewSizing()
	if err := sz.SetFromQuery(q); err != nil {
		return nil, err
	}
	return sz, nil
}

func (sz *Sizing) SetFromQuery(q string) error {
	var err error

	if q == "" {
		return fmt.Errorf("no query given")
	}

	query, err := url.ParseQuery(q)
	if err != nil {
		return err
	}

	size := query.Get("size")
	if size == "" {
		size = query.Get("s")
	}
	if size != "" {
		sz.Size, err = ParseSize(size)
		if err != nil {
			return err
		}
	}

	switch op := query.Get("op"); op {
	case "":
	case OpResize, OpCrop:
		sz.Op = op
	default:
		return fmt.Errorf("unknown op %q: %w", op, ErrInvalidArgument)
	}

	keep := query.Get("keep")
	sz.KeepRatio = keep != "" && keep != "0" && keep != "false"

	if query.Get("hq") != "" {
		sz.Quality = DefaultQuality
	} else if q := query.Get("q"); q != "" {
		sz.Quality, err = strconv.Atoi(q)
		if err != nil {
			return err
		}
		if sz.Quality < 0 || sz.Quality > 100 {
			return fmt.Errorf("quality %d out of range: %w", sz.Quality, ErrInvalidArgument)
		}
	}

	sz.Format = query.Get("format")
	if sz.Format != "" {
		if _, err := FormatFromString(sz.Format); err != nil {
			return fmt.Errorf("unsupported format %q: %w", sz.Format, err)
		}
	}

	return nil
}

func (sz *Sizing) ToQuery() url.Values {
	u := url.Values{}

	if !sz.Size.IsZero() {
		u.Add("s", sz.Size.String())
	}
	if sz.Op != "" {
		u.Add("op", sz.Op)
	}
	if sz.KeepRatio {
		u.Add("keep", "1")
	}
	if sz.Quality != 0 {
		u.Add("q", strconv.Itoa(sz.Quality))
	}
	if sz.Format != "" {
		u.Add("format", sz.Format)
	}

	return u
}

// Rounding function for float64 numbers
func round(in float64) int {
	if in < 0 {
		return int(math.Ceil(in - 0.5))
	}
	return int(math.Floor(in + 0.5))
}

// RoundedAspectRatio rounds the ratio to four decimals, the precision
// reported in ImageInfo.
func RoundedAspectRatio(s Size) float64 {
	return float64(round(s.AspectRatio()*10000)) / 10000
}
