package httpapi

import (
	"net/http"
	"strings"
	"time"

	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

type responseRecorder struct {
	status int
	bytes  int64
	writer http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.writer.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.writer.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.writer.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.writer
}

// sessionLookup resolves the session a request addressed so its mode can be
// logged next to the request.
type sessionLookup func(id schema.SessionID) (schema.SessionSnapshot, error)

// withRequestLogging logs one line per request keyed by the matched route.
// Requests against a session carry its mode and reveal state as seen after
// the handler ran. Server errors log at warn.
func withRequestLogging(next http.Handler, lookup sessionLookup) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{writer: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		logger := pslog.Ctx(r.Context()).With("remote", clientIP(r))
		if id := schema.SessionID(r.PathValue("id")); id != "" {
			logger = logger.With("session", id)
			if lookup != nil {
				if snap, err := lookup(id); err == nil {
					logger = logger.With("mode", snap.Mode, "revealed", snap.Revealed)
				}
			}
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		fields := []any{"route", route, "path", r.URL.Path, "status", status, "bytes", rec.bytes, "duration_ms", time.Since(start).Milliseconds()}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request failed", fields...)
		} else {
			logger.Info("http request", fields...)
		}
		logger.Debug("http request details", "query", r.URL.RawQuery, "ua", r.UserAgent())
	})
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return r.RemoteAddr
}
