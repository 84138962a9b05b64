package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/unrolled/render"

	"github.com/ygfweb/imgkit"
)

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrNoImage    = errors.New("no image given")
)

type Responder struct {
	*render.Render
}

func NewResponder() *Responder {
	return &Responder{render.New(render.Options{})}
}

// Image writes encoded image bytes with their content type and size headers.
func (r *Responder) Image(w http.ResponseWriter, status int, data []byte, imfo *imgkit.ImageInfo) {
	if imfo != nil {
		w.Header().Set("Content-Type", imfo.Mimetype)
		w.Header().Set("X-Meta-Width", fmt.Sprintf("%d", imfo.Width))
		w.Header().Set("X-Meta-Height", fmt.Sprintf("%d", imfo.Height))
	}
	if app != nil && app.Config.CacheMaxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", app.Config.CacheMaxAge))
		w.Header().Set("Last-Modified", time.Now().Format(http.TimeFormat))
	}
	r.Data(w, status, data)
}

// NoStore writes a response that must never be cached, such as a CAPTCHA.
func (r *Responder) NoStore(w http.ResponseWriter, status int, data []byte, mimetype string) {
	w.Header().Set("Content-Type", mimetype)
	w.Header().Set("Cache-Control", "no-store")
	r.Data(w, status, data)
}

func (r *Responder) ImageError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		r.Data(w, status, []byte{})
		return
	}

	r.cacheErrors(w, err)
	w.Header().Set("X-Err", err.Error())
	r.Data(w, status, []byte{})
}

func (r *Responder) ApiError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		r.JSON(w, status, map[string]interface{}{})
		return
	}

	r.cacheErrors(w, err)
	r.JSON(w, status, map[string]interface{}{"error": err.Error()})
}

func (r *Responder) cacheErrors(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, imgkit.ErrInvalidImageData), errors.Is(err, ErrInvalidURL):
		// For invalid inputs, we tell the surrogate to cache the
		// error for a small amount of time.
		w.Header().Set("Surrogate-Control", "max-age=300") // 5 minutes
	default:
	}
}

// errorStatus maps library errors to response codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, imgkit.ErrInvalidImageData),
		errors.Is(err, imgkit.ErrInvalidDimension),
		errors.Is(err, imgkit.ErrInvalidArgument),
		errors.Is(err, imgkit.ErrCropSize),
		errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrNoImage),
		errors.Is(err, ErrFetchTooLarge):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
