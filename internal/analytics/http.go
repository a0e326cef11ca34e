package analytics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the dashboard read model plus the usual operational
// endpoints.
func Handler(agg *Aggregator) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/v1/analytics", func(w http.ResponseWriter, req *http.Request) {
		model := agg.Snapshot(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(model); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
