package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/lambda-connector/internal/domain"
)

// defaultListLimit — количество записей в ListRecent по умолчанию.
const defaultListLimit = 50

const journalSchema = `
	CREATE TABLE IF NOT EXISTS job_journal (
		id                   UUID PRIMARY KEY,
		job_key              BIGINT NOT NULL,
		process_instance_key BIGINT NOT NULL,
		function_name        TEXT,
		outcome              TEXT NOT NULL,
		command              TEXT NOT NULL,
		error_code           TEXT,
		message              TEXT,
		duration_ms          BIGINT NOT NULL,
		handled_at           TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS job_journal_job_key_idx ON job_journal (job_key);
	CREATE INDEX IF NOT EXISTS job_journal_handled_at_idx ON job_journal (handled_at DESC);
`

const journalColumns = `
	id, job_key, process_instance_key, function_name, outcome, command,
	error_code, message, duration_ms, handled_at
`

// JournalRepo — репозиторий журнала обработанных job.
type JournalRepo struct {
	pool *pgxpool.Pool
}

// NewJournalRepo создаёт новый JournalRepo.
func NewJournalRepo(pool *pgxpool.Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

// EnsureSchema создаёт таблицу журнала, если её нет.
func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, journalSchema); err != nil {
		return fmt.Errorf("ensure journal schema: %w", err)
	}
	return nil
}

// Record добавляет запись в журнал.
func (r *JournalRepo) Record(ctx context.Context, entry *domain.JournalEntry) error {
	query := `
		INSERT INTO job_journal (` + journalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.JobKey,
		entry.ProcessInstanceKey,
		nullString(entry.FunctionName),
		entry.Outcome,
		entry.Command,
		nullString(entry.ErrorCode),
		nullString(entry.Message),
		entry.DurationMs,
		entry.HandledAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *JournalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM job_journal WHERE id = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, id))
}

// ListRecent возвращает последние записи, новые первыми.
func (r *JournalRepo) ListRecent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT ` + journalColumns + `
		FROM job_journal
		ORDER BY handled_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return collectEntries(rows)
}

// ListByJobKey возвращает все записи для job (повторные попытки), старые первыми.
func (r *JournalRepo) ListByJobKey(ctx context.Context, jobKey int64) ([]domain.JournalEntry, error) {
	query := `
		SELECT ` + journalColumns + `
		FROM job_journal
		WHERE job_key = $1
		ORDER BY handled_at ASC
	`
	rows, err := r.pool.Query(ctx, query, jobKey)
	if err != nil {
		return nil, fmt.Errorf("list journal by job_key: %w", err)
	}
	return collectEntries(rows)
}

// --- Helpers ---

func collectEntries(rows pgx.Rows) ([]domain.JournalEntry, error) {
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// scanEntry читает запись из pgx.Row (pgx.Rows тоже реализует Scan).
func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var entry domain.JournalEntry
	var functionName, errorCode, message *string

	err := row.Scan(
		&entry.ID,
		&entry.JobKey,
		&entry.ProcessInstanceKey,
		&functionName,
		&entry.Outcome,
		&entry.Command,
		&errorCode,
		&message,
		&entry.DurationMs,
		&entry.HandledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan journal entry: %w", err)
	}

	entry.FunctionName = derefString(functionName)
	entry.ErrorCode = derefString(errorCode)
	entry.Message = derefString(message)

	return &entry, nil
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
