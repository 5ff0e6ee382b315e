package handler

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/logger"

	"github.com/banci/banci/internal/metrics"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush SSE 用に下層の Flusher へ委譲する
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// logger 记录请求日志并上报指标
func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		duration := time.Since(start)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Str("remote", r.RemoteAddr).
			Dur("duration", duration).
			Msg("リクエストを処理しました")

		if h.cfg.Metrics.Enabled {
			metrics.RecordRequest(r.Method, r.URL.Path, sw.status, duration)
		}
	})
}

// recoverer 捕获panic并返回500
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().
					Str("path", r.URL.Path).
					Str("panic", fmt.Sprintf("%v", rec)).
					Str("stack", string(debug.Stack())).
					Msg("ハンドラで panic が発生しました")
				respondError(w, apperrors.New(apperrors.CodeInternal, "内部エラーが発生しました"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
