package logger

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware writes one API line per request once the handler returns.
func (l *Logger) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := r.URL.Path
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				path = fmt.Sprintf("%s [%s]", path, reqID)
			}
			l.LogAPI(r.Method, path, fmt.Sprintf("%d", status), time.Since(start).String())
		})
	}
}
