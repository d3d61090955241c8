package handlers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const readyTimeout = 3 * time.Second

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready probes both upstream APIs and the database when one is configured.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"predict_api": func(ctx context.Context) error { return h.api.Ping(ctx, h.api.PredictURL()) },
		"backend_api": func(ctx context.Context) error { return h.api.Ping(ctx, h.api.BackendURL()) },
	}
	if h.store != nil {
		checks["database"] = h.store.Ping
	}

	names := make([]string, 0, len(checks))
	results := make([]error, len(checks))
	var g errgroup.Group
	for name, check := range checks {
		check := check // per-iteration copy; go directive is 1.21
		i := len(names)
		names = append(names, name)
		g.Go(func() error {
			results[i] = check(ctx)
			return nil
		})
	}
	g.Wait()

	out := readiness{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK
	for i, name := range names {
		if results[i] != nil {
			out.Checks[name] = results[i].Error()
			out.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		out.Checks[name] = "ok"
	}
	writeJSON(w, status, out)
}
