package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/lambda-connector/internal/domain"
)

// ListJournal — GET /api/v1/journal
//
// Query:
//
//	limit   — количество записей (default 50)
//	job_key — все попытки одного job
func (h *Handler) ListJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		NotFound(w, "journal is disabled")
		return
	}

	query := r.URL.Query()

	var (
		entries []domain.JournalEntry
		err     error
	)

	if s := query.Get("job_key"); s != "" {
		jobKey, parseErr := strconv.ParseInt(s, 10, 64)
		if parseErr != nil {
			BadRequest(w, "invalid job_key")
			return
		}
		entries, err = h.journal.ListByJobKey(r.Context(), jobKey)
	} else {
		limit := 0
		if s := query.Get("limit"); s != "" {
			n, parseErr := strconv.Atoi(s)
			if parseErr != nil || n <= 0 {
				BadRequest(w, "invalid limit")
				return
			}
			limit = n
		}
		entries, err = h.journal.ListRecent(r.Context(), limit)
	}
	if HandleRepoError(w, h.logger, err, "journal entries not found") {
		return
	}

	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	List(w, entries, len(entries))
}

// GetJournalEntry — GET /api/v1/journal/{id}
func (h *Handler) GetJournalEntry(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		NotFound(w, "journal is disabled")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid id")
		return
	}

	entry, err := h.journal.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "journal entry not found") {
		return
	}

	Success(w, entry)
}
