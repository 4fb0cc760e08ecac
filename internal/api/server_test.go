package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koopa0/ragent/internal/answer"
	"github.com/koopa0/ragent/internal/checkpoint"
	"github.com/koopa0/ragent/internal/log"
	"github.com/koopa0/ragent/internal/orchestrator"
)

type stubEngine struct {
	result  *orchestrator.Result
	runErr  error
	state   checkpoint.SessionState
	found   bool
	histErr error
}

func (e *stubEngine) Run(ctx context.Context, threadID, question string) (*orchestrator.Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, orchestrator.ErrInvalidInput
	}
	return e.result, e.runErr
}

func (e *stubEngine) History(ctx context.Context, threadID string) (checkpoint.SessionState, bool, error) {
	return e.state, e.found, e.histErr
}

func newTestServer(t *testing.T, engine Engine) *httptest.Server {
	t.Helper()
	srv, err := NewServer(engine, log.NewNop())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHandleAsk(t *testing.T) {
	ts := newTestServer(t, &stubEngine{result: &orchestrator.Result{Answer: "Paris."}})

	resp, err := http.Post(ts.URL+"/api/v1/ask", "application/json",
		strings.NewReader(`{"thread_id":"t1","question":"capital of France?"}`))
	if err != nil {
		t.Fatalf("POST /api/v1/ask error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}

	var body askResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.ThreadID != "t1" || body.Result.Answer != "Paris." {
		t.Errorf("response = %+v, want echoed thread and answer", body)
	}
}

func TestHandleAskGeneratesThreadID(t *testing.T) {
	ts := newTestServer(t, &stubEngine{result: &orchestrator.Result{Answer: "x"}})

	resp, err := http.Post(ts.URL+"/api/v1/ask", "application/json",
		strings.NewReader(`{"question":"q"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	var body askResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.ThreadID == "" {
		t.Error("server did not assign a thread id")
	}
}

func TestHandleAskBadRequest(t *testing.T) {
	ts := newTestServer(t, &stubEngine{result: &orchestrator.Result{}})

	for name, payload := range map[string]string{
		"malformed json": `{`,
		"empty question": `{"thread_id":"t1","question":""}`,
	} {
		resp, err := http.Post(ts.URL+"/api/v1/ask", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("%s: POST error = %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, resp.StatusCode)
		}
	}
}

func TestHandleAskCheckpointFailureStillAnswers(t *testing.T) {
	engine := &stubEngine{
		result: &orchestrator.Result{Answer: "Paris.", Degraded: true},
		runErr: checkpoint.ErrCheckpointIO,
	}
	ts := newTestServer(t, engine)

	resp, err := http.Post(ts.URL+"/api/v1/ask", "application/json",
		strings.NewReader(`{"thread_id":"t1","question":"q"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with warning", resp.StatusCode)
	}
	var body askResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Result.Answer != "Paris." || body.Warning == "" {
		t.Errorf("response = %+v, want answer plus persistence warning", body)
	}
}

func TestHandleAskGenerationFailure(t *testing.T) {
	ts := newTestServer(t, &stubEngine{runErr: answer.ErrAnswerGeneration})

	resp, err := http.Post(ts.URL+"/api/v1/ask", "application/json",
		strings.NewReader(`{"thread_id":"t1","question":"q"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestHandleHistory(t *testing.T) {
	engine := &stubEngine{
		state: checkpoint.SessionState{Question: "q", Answer: "a"},
		found: true,
	}
	ts := newTestServer(t, engine)

	resp, err := http.Get(ts.URL + "/api/v1/threads/t1")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var state checkpoint.SessionState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if state.Question != "q" || state.Answer != "a" {
		t.Errorf("state = %+v", state)
	}
}

func TestHandleHistoryNotFound(t *testing.T) {
	ts := newTestServer(t, &stubEngine{found: false})

	resp, err := http.Get(ts.URL + "/api/v1/threads/unknown")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleHistoryStoreFailure(t *testing.T) {
	ts := newTestServer(t, &stubEngine{histErr: errors.New("db down")})

	resp, err := http.Get(ts.URL + "/api/v1/threads/t1")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHandleDiagram(t *testing.T) {
	ts := newTestServer(t, &stubEngine{})

	resp, err := http.Get(ts.URL + "/api/v1/diagram")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	buf := make([]byte, 1024)
	n, _ := resp.Body.Read(buf)
	if !strings.Contains(string(buf[:n]), "stateDiagram") {
		t.Error("diagram endpoint did not return a mermaid diagram")
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, &stubEngine{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
