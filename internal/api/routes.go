package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Служебные endpoints без логирования: их часто опрашивают
	mux.Handle("GET /healthz", Recovery(h.logger)(http.HandlerFunc(h.Health)))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Journal
	mux.Handle("GET /api/v1/journal", chain(http.HandlerFunc(h.ListJournal)))
	mux.Handle("GET /api/v1/journal/{id}", chain(http.HandlerFunc(h.GetJournalEntry)))
}
