package server

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

type wrappedResponseWriter struct {
	http.ResponseWriter
	status int
}

func (l *wrappedResponseWriter) WriteHeader(status int) {
	l.status = status
	l.ResponseWriter.WriteHeader(status)
}

func (l *wrappedResponseWriter) Write(b []byte) (int, error) {
	if l.status == -1 {
		l.status = http.StatusOK
	}
	return l.ResponseWriter.Write(b)
}

func (l *wrappedResponseWriter) Status() int {
	if l.status == -1 {
		return http.StatusOK
	}
	return l.status
}

func trackRoute(metricID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		route := fmt.Sprintf("route.%s", metricID)
		routeTimer := metrics.GetOrRegisterTimer(route, nil)
		errCounter := metrics.GetOrRegisterCounter(fmt.Sprintf("%s-err", route), nil)

		handler := func(w http.ResponseWriter, r *http.Request) {
			reqStart := time.Now()

			lw := &wrappedResponseWriter{w, -1}
			next.ServeHTTP(lw, r)

			routeTimer.UpdateSince(reqStart)
			if lw.Status() >= 400 {
				errCounter.Inc(1)
			}
		}
		return http.HandlerFunc(handler)
	}
}

func RequestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		reqCounter := metrics.GetOrRegisterCounter("route.TotalNumRequests", nil)

		h := func(w http.ResponseWriter, r *http.Request) {
			reqCounter.Inc(1)

			u, err := url.QueryUnescape(r.URL.RequestURI())
			if err != nil {
				u = r.URL.RequestURI()
			}

			start := time.Now()
			lw := &wrappedResponseWriter{w, -1}
			next.ServeHTTP(lw, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"uri":      u,
				"status":   lw.Status(),
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info(http.StatusText(lw.Status()))
		}
		return http.HandlerFunc(h)
	}
}
