package api

import (
	"net/http"
	"sort"
)

// HealthResponse — состояние воркера.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// Health отвечает 200, если все проверки прошли, иначе 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Components: make(map[string]string, len(names))}
	for _, name := range names {
		if h.checks[name]() {
			resp.Components[name] = "up"
			continue
		}
		resp.Components[name] = "down"
		resp.Status = "unavailable"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, resp)
}
