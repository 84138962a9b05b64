package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ygfweb/imgkit"
	"github.com/ygfweb/imgkit/captcha"
	"github.com/ygfweb/imgkit/imagex"
	"github.com/ygfweb/imgkit/qr"
)

type CaptchaResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type VerifyRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Index(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
	w.Write([]byte(`.`))
}

func GetImageInfo(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		respond.ApiError(w, 422, errors.New("no image url"))
		return
	}

	response, err := app.Fetcher.Get(r.Context(), url)
	if err != nil {
		respond.ApiError(w, 422, err)
		return
	}

	imfo, err := app.ImageEngine.DecodeInfo(response.Data)
	if err != nil {
		respond.ApiError(w, 422, err)
		return
	}
	imfo.URL = response.URL.String()

	w.Header().Set("X-Meta-Width", fmt.Sprintf("%d", imfo.Width))
	w.Header().Set("X-Meta-Height", fmt.Sprintf("%d", imfo.Height))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", app.Config.CacheMaxAge))
	respond.JSON(w, 200, imfo)
}

// SizeImage resizes or crops the posted image according to the sizing query
// (s=WxH, op=resize|crop, keep=1, q=N). The op may be fixed by the route.
func SizeImage(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sizing, err := imgkit.NewSizingFromQuery(r.URL.RawQuery)
		if err != nil {
			logrus.WithError(err).Debugf("bad sizing for %s", r.URL)
			respond.ImageError(w, 422, err)
			return
		}
		if op != "" {
			sizing.Op = op
		}
		if sizing.Size.IsZero() {
			respond.ImageError(w, 422, imgkit.ErrInvalidDimension)
			return
		}
		if err := checkSide(sizing.Size.Width(), sizing.Size.Height()); err != nil {
			respond.ImageError(w, 422, err)
			return
		}

		data, err := readImage(r)
		if err != nil {
			respond.ImageError(w, errorStatus(err), err)
			return
		}
		im, err := imagex.New(data)
		if err != nil {
			respond.ImageError(w, 422, err)
			return
		}

		var out *imagex.Image
		switch sizing.Op {
		case imgkit.OpCrop:
			out, err = im.Crop(sizing.Size.Width(), sizing.Size.Height(), sizing.Quality)
		default:
			out, err = im.Resize(sizing.Size.Width(), sizing.Size.Height(), sizing.KeepRatio)
		}
		if err != nil {
			logrus.WithError(err).Errorf("Failed to size image for %s", r.URL)
			respond.ImageError(w, errorStatus(err), err)
			return
		}

		imfo, _ := out.Info()
		respond.Image(w, 200, out.Data(), imfo)
	}
}

// GetCaptcha issues a new challenge. The image is returned as PNG with the
// challenge id in X-Captcha-Id, or as JSON with a data URI when json=1.
func GetCaptcha(w http.ResponseWriter, r *http.Request) {
	cf := app.Config
	q := r.URL.Query()

	width, err := intParam(q.Get("w"), cf.Captcha.Width)
	if err != nil {
		respond.ApiError(w, 422, err)
		return
	}
	height, err := intParam(q.Get("h"), cf.Captcha.Height)
	if err != nil {
		respond.ApiError(w, 422, err)
		return
	}
	n, err := intParam(q.Get("n"), cf.Captcha.CodeLength)
	if err != nil || n <= 0 || n > 12 {
		respond.ApiError(w, 422, imgkit.ErrInvalidArgument)
		return
	}
	if err := checkSide(width, height); err != nil {
		respond.ApiError(w, 422, err)
		return
	}

	code := captcha.RandomCode(n, nil)
	im, err := imagex.NewVerifyCode(code, height, width)
	if err != nil {
		respond.ApiError(w, errorStatus(err), err)
		return
	}

	id := uuid.NewString()
	if err := app.Store.Put(id, code, cf.Captcha.TTL); err != nil {
		logrus.WithError(err).Error("captcha: unable to store challenge")
		respond.ApiError(w, 500, err)
		return
	}

	w.Header().Set("X-Captcha-Id", id)
	if q.Get("json") != "" {
		w.Header().Set("Cache-Control", "no-store")
		respond.JSON(w, 200, CaptchaResponse{
			ID:    id,
			Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(im.Data()),
		})
		return
	}
	respond.NoStore(w, 200, im.Data(), imgkit.PNG.Mimetype())
}

func PostCaptchaVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		respond.ApiError(w, 400, errors.New("invalid json"))
		return
	}
	if req.ID == "" {
		respond.ApiError(w, 400, errors.New("missing id"))
		return
	}

	code, err := app.Store.Take(req.ID)
	if errors.Is(err, ErrChallengeNotFound) {
		respond.JSON(w, 404, VerifyResponse{false, err.Error()})
		return
	}
	if err != nil {
		respond.ApiError(w, 500, err)
		return
	}

	if !captcha.Match(code, req.Code) {
		respond.JSON(w, 200, VerifyResponse{false, "code mismatch"})
		return
	}
	respond.JSON(w, 200, VerifyResponse{true, "ok"})
}

// GetQR renders ?text= as a QR code. A POST may carry a logo image as the
// body or a "file" form field.
func GetQR(w http.ResponseWriter, r *http.Request) {
	cf := app.Config
	q := r.URL.Query()

	opts := qr.DefaultOptions()
	var err error
	if opts.Width, err = intParam(q.Get("w"), cf.QR.Width); err != nil {
		respond.ImageError(w, 422, err)
		return
	}
	if opts.Height, err = intParam(q.Get("h"), cf.QR.Height); err != nil {
		respond.ImageError(w, 422, err)
		return
	}
	if opts.Margin, err = intParam(q.Get("margin"), 0); err != nil {
		respond.ImageError(w, 422, err)
		return
	}
	if err := checkSide(opts.Width, opts.Height); err != nil {
		respond.ImageError(w, 422, err)
		return
	}

	if r.Method == "POST" {
		logo, err := readImage(r)
		if err != nil && !errors.Is(err, ErrNoImage) {
			respond.ImageError(w, errorStatus(err), err)
			return
		}
		opts.Logo = logo
	}

	im, err := imagex.NewQRCode(q.Get("text"), opts)
	if err != nil {
		respond.ImageError(w, errorStatus(err), err)
		return
	}
	if im.IsEmpty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	imfo, _ := im.Info()
	respond.Image(w, 200, im.Data(), imfo)
}

func PostQRDecode(w http.ResponseWriter, r *http.Request) {
	data, err := readImage(r)
	if err != nil {
		respond.ApiError(w, errorStatus(err), err)
		return
	}
	im, err := imagex.New(data)
	if err != nil {
		respond.ApiError(w, 422, err)
		return
	}
	respond.JSON(w, 200, map[string]string{"text": im.QRText()})
}

// readImage takes the image from ?url=, a multipart "file" field, or the raw
// request body, in that order.
func readImage(r *http.Request) ([]byte, error) {
	maxSize := app.Config.Limits.MaxUploadSize

	if u := r.URL.Query().Get("url"); u != "" {
		resp, err := app.Fetcher.Get(r.Context(), u)
		if err != nil {
			return nil, err
		}
		return resp.Data, nil
	}

	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("file")
		if err == http.ErrMissingFile {
			return nil, ErrNoImage
		}
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return readLimited(file, maxSize)
	}

	if r.Body == nil {
		return nil, ErrNoImage
	}
	return readLimited(r.Body, maxSize)
}

func readLimited(rd io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFetchTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", imgkit.ErrInvalidArgument, s)
	}
	return n, nil
}

func checkSide(width, height int) error {
	limit := app.Config.Limits.MaxImageSide
	if width <= 0 || height <= 0 {
		return imgkit.ErrInvalidDimension
	}
	if limit > 0 && (width > limit || height > limit) {
		return fmt.Errorf("%w: %dx%d exceeds %d", imgkit.ErrInvalidDimension, width, height, limit)
	}
	return nil
}
