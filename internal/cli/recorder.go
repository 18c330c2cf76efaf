package cli

import (
	"context"
	"sync"

	"github.com/shaiso/lambda-connector/internal/domain"
)

// Recorder — JobClient, который запоминает команды вместо отправки.
// Используется командой job handle для локального прогона.
type Recorder struct {
	mu       sync.Mutex
	commands []*domain.Command
}

// Complete запоминает команду complete.
func (r *Recorder) Complete(_ context.Context, jobKey int64, variables map[string]any) error {
	r.add(domain.CompleteCommand(jobKey, variables))
	return nil
}

// Fail запоминает команду fail.
func (r *Recorder) Fail(_ context.Context, jobKey int64, retries int, message string) error {
	r.add(domain.FailCommand(jobKey, retries, message))
	return nil
}

// ThrowError запоминает команду throw_error.
func (r *Recorder) ThrowError(_ context.Context, jobKey int64, errorCode, message string) error {
	r.add(domain.ThrowErrorCommand(jobKey, errorCode, message))
	return nil
}

func (r *Recorder) add(cmd *domain.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

// Commands возвращает запомненные команды.
func (r *Recorder) Commands() []*domain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Command(nil), r.commands...)
}
