package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
)

// streamStats writes one StatsResponse per interval as NDJSON until the
// client disconnects or the server base context is canceled. The interval
// comes from ?interval_ms= and is clamped; ?count= stops after n lines.
func streamStats(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interval := defaultStreamInterval
		if v := r.URL.Query().Get("interval_ms"); v != "" {
			ms, err := strconv.Atoi(v)
			if err != nil || ms <= 0 {
				writeJSONError(w, http.StatusBadRequest, "interval_ms must be a positive integer")
				return
			}
			interval = clampInterval(time.Duration(ms) * time.Millisecond)
		}
		limit := 0
		if v := r.URL.Query().Get("count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSONError(w, http.StatusBadRequest, "count must be a non-negative integer")
				return
			}
			limit = n
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		writer := io.Writer(w)
		if requestLogLevel(r) >= LevelDebug {
			writer = io.MultiWriter(w, &loggingLineWriter{})
		}
		enc := json.NewEncoder(writer)

		// Join server base context with request context so shutdown ends the stream too.
		ctx, cancel := joinContexts(r.Context(), baseContext())
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for sent := 0; limit == 0 || sent < limit; sent++ {
			if err := enc.Encode(svc.Stats()); err != nil {
				return
			}
			streamLinesTotal.Inc()
			if flush != nil {
				flush()
			}
			if limit != 0 && sent+1 == limit {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}
