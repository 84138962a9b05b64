package server

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	raven "github.com/getsentry/raven-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// SentryHook forwards warnings and worse to sentry.
type SentryHook struct{}

func (SentryHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (SentryHook) Fire(entry *logrus.Entry) error {
	packet := raven.NewPacket(
		entry.Message,
		raven.NewException(
			fmt.Errorf("API alert: %s", entry.Message),
			raven.NewStacktrace(2, 3, nil),
		),
	)
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		packet.Level = raven.FATAL

	case logrus.ErrorLevel:
		packet.Level = raven.ERROR

	case logrus.WarnLevel:
		packet.Level = raven.WARNING
	}

	tags := map[string]string{}
	for k, v := range entry.Data {
		tags[k] = fmt.Sprint(v)
	}
	raven.Capture(packet, tags)
	return nil
}

// CapturePanic middleware reports panics to sentry.
func CapturePanic() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rval := recover(); rval != nil {
					if rval == http.ErrAbortHandler {
						panic(rval)
					}
					debug.PrintStack()
					msg := fmt.Sprint(rval)
					packet := raven.NewPacket(msg, raven.NewException(errors.New(msg), raven.NewStacktrace(2, 3, nil)), raven.NewHttp(r))
					raven.Capture(packet, map[string]string{"request_id": middleware.GetReqID(r.Context())})
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
