package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/lambda-connector/internal/domain"
	"github.com/shaiso/lambda-connector/internal/repo"
)

// NewHistoryCmd создаёт группу команд для журнала обработанных job.
func NewHistoryCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the journal of handled jobs",
	}

	cmd.AddCommand(newHistoryListCmd(deps))

	return cmd
}

func newHistoryListCmd(deps Deps) *cobra.Command {
	var limit int
	var jobKey int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List handled jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}
			out := deps.Output()

			pool, err := repo.NewPool(cmd.Context(), cfg.DB.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			journal := repo.NewJournalRepo(pool)

			var entries []domain.JournalEntry
			if jobKey != 0 {
				entries, err = journal.ListByJobKey(cmd.Context(), jobKey)
			} else {
				entries, err = journal.ListRecent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			headers, rows := historyTable(entries)
			out.Print(headers, rows, entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")
	cmd.Flags().Int64Var(&jobKey, "job-key", 0, "Show all attempts of a job")

	return cmd
}

// historyTable строит таблицу журнала.
func historyTable(entries []domain.JournalEntry) ([]string, [][]string) {
	headers := []string{"HANDLED_AT", "JOB_KEY", "FUNCTION", "OUTCOME", "COMMAND", "ERROR_CODE", "DURATION", "MESSAGE"}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.HandledAt.Format(time.RFC3339),
			strconv.FormatInt(e.JobKey, 10),
			dash(e.FunctionName),
			string(e.Outcome),
			string(e.Command),
			dash(e.ErrorCode),
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			dash(truncate(e.Message, 60)),
		}
	}
	return headers, rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
