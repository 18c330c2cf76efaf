package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/shaiso/lambda-connector/internal/config"
	"github.com/shaiso/lambda-connector/internal/domain"
)

const bookHotelJob = `{
	"key": 100,
	"type": "lambda",
	"processInstanceKey": 200,
	"retries": 3,
	"customHeaders": {"functionName": "${prefix}Hotel", "functionErrorCode": "HOTEL_ERROR"},
	"variables": {"city": "NYC"}
}`

// testDeps возвращает зависимости с изолированной конфигурацией.
func testDeps(t *testing.T, jsonMode bool, mutate func(cfg *config.Config)) (Deps, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("prefix=book\nAPI_TOKEN=secret-token\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg := config.Default()
	cfg.Env.Prefix = ""
	cfg.Env.File = envFile
	if mutate != nil {
		mutate(cfg)
	}

	var stdout bytes.Buffer
	deps := Deps{
		Config: func() (*config.Config, error) { return cfg, nil },
		Output: func() *Output { return NewOutputTo(&stdout, io.Discard, jsonMode) },
	}
	return deps, &stdout
}

func writeJob(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write job file: %v", err)
	}
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

// --- Job Params Tests ---

func TestJobParams(t *testing.T) {
	deps, stdout := testDeps(t, false, nil)

	err := execute(t, NewJobCmd(deps), "params", "--file", writeJob(t, bookHotelJob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"bookHotel", "HOTEL_ERROR", "functionName", "payload"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestJobParams_JSON(t *testing.T) {
	deps, stdout := testDeps(t, true, nil)

	err := execute(t, NewJobCmd(deps), "params", "-f", writeJob(t, bookHotelJob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var params domain.CallParameters
	if err := json.Unmarshal(stdout.Bytes(), &params); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if params.FunctionName != "bookHotel" {
		t.Errorf("expected bookHotel, got %q", params.FunctionName)
	}
	if params.ResultName != "bookHotel" {
		t.Errorf("result name should default to function name, got %q", params.ResultName)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(params.Payload), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["city"] != "NYC" || payload["jobKey"] != float64(100) {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestJobParams_Unresolved(t *testing.T) {
	deps, _ := testDeps(t, false, nil)
	job := strings.Replace(bookHotelJob, "${prefix}", "${missing}", 1)

	if err := execute(t, NewJobCmd(deps), "params", "-f", writeJob(t, job)); err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
}

func TestJobParams_FileRequired(t *testing.T) {
	deps, _ := testDeps(t, false, nil)

	if err := execute(t, NewJobCmd(deps), "params"); err == nil {
		t.Fatal("expected error without --file")
	}
}

// --- Job Handle Tests ---

func newFunctionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestJobHandle_Complete(t *testing.T) {
	var gotPath string
	srv := newFunctionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"statusCode":200,"body":"{\"id\":42}"}`))
	})

	deps, stdout := testDeps(t, true, func(cfg *config.Config) {
		cfg.Invoker.Kind = config.InvokerHTTP
		cfg.Invoker.BaseURL = srv.URL
	})

	if err := execute(t, NewJobCmd(deps), "handle", "-f", writeJob(t, bookHotelJob)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/2015-03-31/functions/bookHotel/invocations" {
		t.Errorf("unexpected invoke path %q", gotPath)
	}

	var cmd domain.Command
	if err := json.Unmarshal(stdout.Bytes(), &cmd); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cmd.Type != domain.CommandComplete || cmd.JobKey != 100 {
		t.Errorf("unexpected command %+v", cmd)
	}
	if cmd.Variables["bookHotelJsonString"] != `{"id":42}` {
		t.Errorf("unexpected variables %v", cmd.Variables)
	}
}

func TestJobHandle_ThrowError(t *testing.T) {
	srv := newFunctionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Amz-Function-Error", "Unhandled")
		w.Write([]byte(`{"errorMessage":"no rooms"}`))
	})

	deps, stdout := testDeps(t, false, func(cfg *config.Config) {
		cfg.Invoker.Kind = config.InvokerHTTP
		cfg.Invoker.BaseURL = srv.URL
	})

	if err := execute(t, NewJobCmd(deps), "handle", "-f", writeJob(t, bookHotelJob)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"throw_error", "HOTEL_ERROR", "no rooms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestJobHandle_Fail(t *testing.T) {
	srv := newFunctionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	deps, stdout := testDeps(t, true, func(cfg *config.Config) {
		cfg.Invoker.Kind = config.InvokerHTTP
		cfg.Invoker.BaseURL = srv.URL
	})

	if err := execute(t, NewJobCmd(deps), "handle", "-f", writeJob(t, bookHotelJob)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cmd domain.Command
	if err := json.Unmarshal(stdout.Bytes(), &cmd); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cmd.Type != domain.CommandFail || cmd.Retries != 2 {
		t.Errorf("expected fail with 2 retries, got %+v", cmd)
	}
}

// --- Command Values Tests ---

func TestCommandValues(t *testing.T) {
	tests := []struct {
		name string
		cmd  *domain.Command
		want map[string]string
	}{
		{
			name: "complete",
			cmd:  domain.CompleteCommand(1, map[string]any{"resultStatusCode": 200}),
			want: map[string]string{"command": "complete", "job_key": "1", "variables.resultStatusCode": "200"},
		},
		{
			name: "fail",
			cmd:  domain.FailCommand(2, 0, "boom"),
			want: map[string]string{"command": "fail", "job_key": "2", "retries": "0", "error_message": "boom"},
		},
		{
			name: "throw error",
			cmd:  domain.ThrowErrorCommand(3, "CODE", "declared"),
			want: map[string]string{"command": "throw_error", "job_key": "3", "error_code": "CODE", "error_message": "declared"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := commandValues(tt.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s: expected %q, got %q", k, v, got[k])
				}
			}
		})
	}
}

// --- Env Tests ---

func TestEnvShow_Masked(t *testing.T) {
	deps, stdout := testDeps(t, false, nil)

	if err := execute(t, NewEnvCmd(deps), "show"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	if strings.Contains(out, "secret-token") {
		t.Errorf("value should be masked:\n%s", out)
	}
	if !strings.Contains(out, "API_TOKEN") || !strings.Contains(out, "se********") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestEnvShow_Reveal(t *testing.T) {
	deps, stdout := testDeps(t, true, nil)

	if err := execute(t, NewEnvCmd(deps), "show", "--reveal"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var values map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &values); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if values["API_TOKEN"] != "secret-token" || values["prefix"] != "book" {
		t.Errorf("unexpected values %v", values)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"ab", "**"},
		{"abc", "ab*"},
		{"a-very-long-secret", "a-********"},
	}

	for _, tt := range tests {
		if got := mask(tt.in); got != tt.want {
			t.Errorf("mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- Helpers Tests ---

func TestLoadJob_Stdin(t *testing.T) {
	job, err := loadJob("-", strings.NewReader(`{"key": 9007199254740993, "retries": 1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Key != 9007199254740993 {
		t.Errorf("key lost precision: %d", job.Key)
	}
}

func TestLoadJob_KeepsVariableNumbers(t *testing.T) {
	job, err := loadJob("-", strings.NewReader(`{"key": 1, "variables": {"orderId": 2251799813685249123}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Variables["orderId"] != json.Number("2251799813685249123") {
		t.Errorf("orderId lost precision: %v", job.Variables["orderId"])
	}
}

func TestLoadJob_Invalid(t *testing.T) {
	if _, err := loadJob("-", strings.NewReader("not json")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := loadJob(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected open error")
	}
}

func TestHistoryTable(t *testing.T) {
	job := &domain.Job{Key: 7, ProcessInstanceKey: 8}
	entry := domain.NewJournalEntry(job, "", domain.OutcomeUnexpectedFailure,
		domain.FailCommand(7, 1, strings.Repeat("x", 100)), 0)

	headers, rows := historyTable([]domain.JournalEntry{*entry})
	if len(rows) != 1 || len(rows[0]) != len(headers) {
		t.Fatalf("unexpected table %v %v", headers, rows)
	}
	if rows[0][2] != "-" {
		t.Errorf("empty function name should render as dash, got %q", rows[0][2])
	}
	if len(rows[0][7]) != 63 {
		t.Errorf("message should be truncated, got %d chars", len(rows[0][7]))
	}
}
