package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/lambda-connector/internal/domain"
	"github.com/shaiso/lambda-connector/internal/mq"
)

type fakeProcessor struct {
	jobs []*domain.Job
	err  error
}

func (p *fakeProcessor) Handle(_ context.Context, job *domain.Job) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

func jobDelivery(msgType mq.MessageType, payload any) *mq.Delivery {
	return &mq.Delivery{Message: *mq.NewMessage(msgType, payload)}
}

// --- Worker Tests ---

func TestNew_DefaultConfig(t *testing.T) {
	w := New(Config{})

	if w.jobType != defaultJobType {
		t.Errorf("expected default job type %s, got %s", defaultJobType, w.jobType)
	}
	if w.prefetch != defaultPrefetch {
		t.Errorf("expected default prefetch %d, got %d", defaultPrefetch, w.prefetch)
	}
	if w.concurrency != defaultConcurrency {
		t.Errorf("expected default concurrency %d, got %d", defaultConcurrency, w.concurrency)
	}
}

func TestNew_CustomConfig(t *testing.T) {
	w := New(Config{
		JobType:     "payments",
		Prefetch:    20,
		Concurrency: 10,
	})

	if w.jobType != "payments" {
		t.Errorf("expected job type payments, got %s", w.jobType)
	}
	if w.prefetch != 20 {
		t.Errorf("expected prefetch 20, got %d", w.prefetch)
	}
	if w.concurrency != 10 {
		t.Errorf("expected concurrency 10, got %d", w.concurrency)
	}
}

func TestWorker_IsStopped(t *testing.T) {
	w := New(Config{})

	if w.IsStopped() {
		t.Error("should not be stopped initially")
	}

	w.Stop()

	if !w.IsStopped() {
		t.Error("should be stopped")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("expected ErrWorkerStopped after stop, got %v", err)
	}
}

// --- handleJobActivated Tests ---

func TestHandleJobActivated(t *testing.T) {
	p := &fakeProcessor{}
	w := New(Config{Processor: p})

	job := bookHotelJob()
	if err := w.handleJobActivated(context.Background(), jobDelivery(mq.MessageTypeJobActivated, job)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(p.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(p.jobs))
	}
	got := p.jobs[0]
	if got.Key != 100 || got.Retries != 3 {
		t.Errorf("unexpected job %+v", got)
	}
	if got.CustomHeaders["functionName"] != "bookHotel" {
		t.Errorf("unexpected headers %v", got.CustomHeaders)
	}
}

func TestHandleJobActivated_ProcessorError(t *testing.T) {
	p := &fakeProcessor{err: ErrCommandDelivery}
	w := New(Config{Processor: p})

	err := w.handleJobActivated(context.Background(), jobDelivery(mq.MessageTypeJobActivated, bookHotelJob()))
	if !errors.Is(err, ErrCommandDelivery) {
		t.Errorf("expected ErrCommandDelivery, got %v", err)
	}
	if errors.Is(err, mq.ErrRejected) {
		t.Error("delivery failures should be requeued, not rejected")
	}
}

func TestHandleJobActivated_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		delivery *mq.Delivery
	}{
		{"wrong type", jobDelivery(mq.MessageTypeJobCommand, bookHotelJob())},
		{"not an object", jobDelivery(mq.MessageTypeJobActivated, "job")},
		{"missing key", jobDelivery(mq.MessageTypeJobActivated, map[string]any{"type": "lambda"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{}
			w := New(Config{Processor: p})

			err := w.handleJobActivated(context.Background(), tt.delivery)
			if !errors.Is(err, mq.ErrRejected) {
				t.Errorf("expected mq.ErrRejected, got %v", err)
			}
			if len(p.jobs) != 0 {
				t.Error("processor should not be called")
			}
		})
	}
}

// --- Number Precision Tests ---

// wireMessage декодирует тело сообщения так же, как consumer.
func wireMessage(t *testing.T, body string) *mq.Message {
	t.Helper()
	var msg mq.Message
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return &msg
}

func TestDecodeJob_LargeIntegerVariable(t *testing.T) {
	msg := wireMessage(t, `{
		"id": "m-1",
		"type": "job.activated",
		"payload": {
			"key": 2251799813685249001,
			"processInstanceKey": 2251799813685249002,
			"retries": 3,
			"customHeaders": {"functionName": "bookHotel"},
			"variables": {"parentKey": 2251799813685249123, "ratio": 0.5}
		}
	}`)

	job, err := decodeJob(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Key != 2251799813685249001 || job.ProcessInstanceKey != 2251799813685249002 {
		t.Errorf("job keys lost precision: %d/%d", job.Key, job.ProcessInstanceKey)
	}
	if got := job.Variables["parentKey"]; got != json.Number("2251799813685249123") {
		t.Fatalf("expected exact json.Number, got %T %v", got, got)
	}

	inv := &fakeInvoker{result: `{"statusCode":200,"body":"{\"bookingKey\":2251799813685249999}"}`}
	client := &recordingClient{}
	h := newTestHandler(inv, client, nil)

	if err := h.Handle(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := inv.calls[0].payload
	if !strings.Contains(payload, `"parentKey":2251799813685249123`) {
		t.Errorf("payload lost precision: %s", payload)
	}
	if !strings.Contains(payload, `\"parentKey\":2251799813685249123`) {
		t.Errorf("variablesJson lost precision: %s", payload)
	}

	cmd := client.single(t)
	body, ok := cmd.Variables["bookHotel"].(map[string]any)
	if !ok {
		t.Fatalf("expected structured result, got %T", cmd.Variables["bookHotel"])
	}
	if body["bookingKey"] != json.Number("2251799813685249999") {
		t.Errorf("result lost precision: %v", body["bookingKey"])
	}
}
