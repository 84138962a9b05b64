package server

import (
	"net/http"

	raven "github.com/getsentry/raven-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/ygfweb/imgkit"
	"github.com/ygfweb/imgkit/imagex"
)

var (
	app     *Server
	respond = NewResponder()
)

type Server struct {
	Config      *Config
	Store       ChallengeStore
	Fetcher     *Fetcher
	ImageEngine imgkit.Engine
}

func New(conf *Config) *Server {
	app = &Server{Config: conf}
	return app
}

func (srv *Server) Configure() (err error) {
	if err := srv.Config.Apply(); err != nil {
		return err
	}

	if err := srv.Config.SetupStatsD(); err != nil {
		return err
	}

	if dsn := srv.Config.Sentry.DSN; dsn != "" {
		if err := raven.SetDSN(dsn); err != nil {
			return err
		}
	}

	srv.Store, err = srv.Config.GetStore()
	if err != nil {
		return err
	}

	srv.Fetcher = NewFetcher(srv.Config.Limits.MaxFetchers)
	srv.Fetcher.MaxBytes = srv.Config.Limits.MaxUploadSize
	srv.Fetcher.CustomParams = srv.Config.CustomParams

	srv.ImageEngine = imagex.Engine

	return nil
}

// Close signals to the server that should deny new requests
// and finish up requests in progress.
func (srv *Server) Close() {
	logrus.Info("closing server..")
}

// Shutdown will release other resources and halt the server.
func (srv *Server) Shutdown() {
	if srv.Store != nil {
		srv.Store.Close()
	}
	logrus.Info("server shutdown.")
}

func (srv *Server) NewRouter() http.Handler {
	cf := srv.Config
	logger := logrus.StandardLogger()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	if cf.Sentry.DSN != "" {
		logger.Formatter = &logrus.JSONFormatter{}
		logger.AddHook(SentryHook{})
		r.Use(RequestLogger(logger))
		r.Use(CapturePanic())
	} else {
		logger.Formatter = &logrus.TextFormatter{}
		r.Use(RequestLogger(logger))
		r.Use(middleware.Recoverer)
	}

	r.Use(middleware.ThrottleBacklog(cf.Limits.MaxRequests, cf.Limits.BacklogSize, cf.Limits.BacklogTimeout))
	r.Use(middleware.Timeout(cf.Limits.RequestTimeout))

	r.Use(middleware.Heartbeat("/ping"))

	if cf.Profiler {
		r.Mount("/debug", middleware.Profiler())
	}

	r.With(trackRoute("root")).Get("/", Index)
	r.With(trackRoute("imageInfo")).Get("/info", GetImageInfo)

	r.With(trackRoute("resize")).Post("/resize", SizeImage(imgkit.OpResize))
	r.With(trackRoute("crop")).Post("/crop", SizeImage(imgkit.OpCrop))
	r.With(trackRoute("size")).Post("/size", SizeImage(""))

	r.With(trackRoute("captcha")).Get("/captcha", GetCaptcha)
	r.With(trackRoute("captchaVerify")).Post("/captcha/verify", PostCaptchaVerify)

	r.Group(func(r chi.Router) {
		cors := cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link", "X-Meta-Width", "X-Meta-Height"},
			AllowCredentials: true,
			MaxAge:           300, // Maximum value not ignored by any of major browsers
		})
		r.Use(cors.Handler)
		r.Use(trackRoute("qr"))

		r.Get("/qr", GetQR)
	})

	r.With(trackRoute("qrLogo")).Post("/qr", GetQR)
	r.With(trackRoute("qrDecode")).Post("/qr/decode", PostQRDecode)

	return r
}
