package server

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/onnwee/yt-observatory/db"
)

// Handlers bundles the dependencies of the HTTP endpoints.
type Handlers struct {
	db *sql.DB
}

// HandleHealthz responds to liveness probes by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probes. Ready means the database
// answers and the schema is present.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"schema", func() error {
			var one int
			return h.db.QueryRowContext(r.Context(),
				"SELECT 1 FROM channels LIMIT 1").Scan(&one) // sql.ErrNoRows is fine
		}},
	}

	for _, check := range checks {
		err := check.fn()
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus reports counts and worker heartbeats for operators.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]any{}

	var channels, videos int64
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM channels").Scan(&channels); err == nil {
		status["channels"] = channels
	}
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&videos); err == nil {
		status["videos"] = videos
	}

	if beats, err := db.GetJobHeartbeats(ctx, h.db); err == nil {
		status["jobs"] = beats
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
