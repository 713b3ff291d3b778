package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"demo/ordercrm/internal/metrics"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger, m *metrics.Registry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		elapsed := time.Since(start)
		m.HTTPLatencySec.WithLabelValues(r.Method, strconv.Itoa(lrw.statusCode)).Observe(elapsed.Seconds())
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", elapsed))
	})
}
