package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/lambda-connector/internal/domain"
	"github.com/shaiso/lambda-connector/internal/repo"
)

type fakeJournal struct {
	entries []domain.JournalEntry
	err     error

	lastLimit  int
	lastJobKey int64
}

func (f *fakeJournal) GetByID(_ context.Context, id uuid.UUID) (*domain.JournalEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.entries {
		if f.entries[i].ID == id {
			return &f.entries[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeJournal) ListRecent(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	f.lastLimit = limit
	return f.entries, f.err
}

func (f *fakeJournal) ListByJobKey(_ context.Context, jobKey int64) ([]domain.JournalEntry, error) {
	f.lastJobKey = jobKey
	var out []domain.JournalEntry
	for _, e := range f.entries {
		if e.JobKey == jobKey {
			out = append(out, e)
		}
	}
	return out, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	cfg.Logger = discardLogger()
	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func sampleEntries() []domain.JournalEntry {
	job := &domain.Job{Key: 100, ProcessInstanceKey: 200}
	first := domain.NewJournalEntry(job, "bookHotel", domain.OutcomeUnexpectedFailure,
		domain.FailCommand(100, 2, "timeout"), 0)
	second := domain.NewJournalEntry(&domain.Job{Key: 101}, "bookHotel", domain.OutcomeSuccess,
		domain.CompleteCommand(101, nil), 0)
	return []domain.JournalEntry{*first, *second}
}

// --- Health Tests ---

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
	}{
		{"no checks", nil, http.StatusOK},
		{"all up", map[string]Check{"amqp": func() bool { return true }}, http.StatusOK},
		{"one down", map[string]Check{
			"amqp":   func() bool { return true },
			"worker": func() bool { return false },
		}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Config{Checks: tt.checks})

			resp, err := http.Get(srv.URL + "/healthz")
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			var body HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantStatus != http.StatusOK && body.Components["worker"] != "down" {
				t.Errorf("expected worker down, got %v", body.Components)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

// --- Journal Tests ---

func TestListJournal(t *testing.T) {
	journal := &fakeJournal{entries: sampleEntries()}
	srv := newTestServer(t, Config{Journal: journal})

	resp, err := http.Get(srv.URL + "/api/v1/journal?limit=10")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if journal.lastLimit != 10 {
		t.Errorf("expected limit 10, got %d", journal.lastLimit)
	}

	var body struct {
		Data  []domain.JournalEntry `json:"data"`
		Total int                   `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || len(body.Data) != 2 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestListJournal_ByJobKey(t *testing.T) {
	journal := &fakeJournal{entries: sampleEntries()}
	srv := newTestServer(t, Config{Journal: journal})

	resp, err := http.Get(srv.URL + "/api/v1/journal?job_key=101")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Data []domain.JournalEntry `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if journal.lastJobKey != 101 || len(body.Data) != 1 || body.Data[0].Command != domain.CommandComplete {
		t.Errorf("unexpected result %+v", body.Data)
	}
}

func TestListJournal_Errors(t *testing.T) {
	tests := []struct {
		name       string
		journal    JournalReader
		query      string
		wantStatus int
	}{
		{"disabled", nil, "", http.StatusNotFound},
		{"bad limit", &fakeJournal{}, "?limit=abc", http.StatusBadRequest},
		{"negative limit", &fakeJournal{}, "?limit=-1", http.StatusBadRequest},
		{"bad job key", &fakeJournal{}, "?job_key=x", http.StatusBadRequest},
		{"repo error", &fakeJournal{err: errors.New("db down")}, "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Config{Journal: tt.journal})

			resp, err := http.Get(srv.URL + "/api/v1/journal" + tt.query)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestGetJournalEntry(t *testing.T) {
	entries := sampleEntries()
	srv := newTestServer(t, Config{Journal: &fakeJournal{entries: entries}})

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"found", entries[0].ID.String(), http.StatusOK},
		{"not found", uuid.NewString(), http.StatusNotFound},
		{"invalid id", "not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/v1/journal/" + tt.id)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

// --- Middleware Tests ---

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mw("first"), mw("second"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "first" || order[1] != "second" {
		t.Errorf("unexpected order %v", order)
	}
}
