package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Chichichkin/HipChatSink/internal/logging"
)

type MockBatchEmitter struct {
	EmittedBatches [][]logging.LogEvent
	mu             sync.Mutex
	ShouldFail     bool
	Delay          time.Duration
	inFlight       int
	MaxInFlight    int
}

func (m *MockBatchEmitter) EmitBatch(_ context.Context, events []logging.LogEvent) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.MaxInFlight {
		m.MaxInFlight = m.inFlight
	}
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--

	if m.ShouldFail {
		return fmt.Errorf("mock emit failed")
	}

	m.EmittedBatches = append(m.EmittedBatches, events)
	return nil
}

func (m *MockBatchEmitter) GetEmittedBatches() [][]logging.LogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]logging.LogEvent(nil), m.EmittedBatches...)
}

func (m *MockBatchEmitter) GetMaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MaxInFlight
}

// MockEventSink collects events handed to it by an event source.
type MockEventSink struct {
	Events    []logging.LogEvent
	mu        sync.Mutex
	EmitCalls int
}

func (m *MockEventSink) Emit(event logging.LogEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	m.EmitCalls++
}

func (m *MockEventSink) GetEvents() []logging.LogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]logging.LogEvent(nil), m.Events...)
}

// RecordedRequest is one notification received by a NotificationServer.
type RecordedRequest struct {
	Method      string
	EscapedPath string
	RawQuery    string
	Token       string
	Accept      string
	ContentType string
	Body        map[string]any
	RawBody     string
}

// NotificationServer is an httptest server standing in for the HipChat API.
// Statuses are answered in order; once exhausted every request gets 204.
type NotificationServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []RecordedRequest
	Statuses []int
}

func NewNotificationServer(t *testing.T, statuses ...int) *NotificationServer {
	t.Helper()

	ns := &NotificationServer{Statuses: statuses}
	ns.Server = httptest.NewServer(http.HandlerFunc(ns.handle))
	t.Cleanup(ns.Close)
	return ns
}

func (ns *NotificationServer) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := RecordedRequest{
		Method:      r.Method,
		EscapedPath: r.URL.EscapedPath(),
		RawQuery:    r.URL.RawQuery,
		Token:       r.URL.Query().Get("auth_token"),
		Accept:      r.Header.Get("Accept"),
		ContentType: r.Header.Get("Content-Type"),
		RawBody:     string(raw),
	}
	_ = json.Unmarshal(raw, &rec.Body)

	ns.mu.Lock()
	idx := len(ns.requests)
	ns.requests = append(ns.requests, rec)
	status := http.StatusNoContent
	if idx < len(ns.Statuses) {
		status = ns.Statuses[idx]
	}
	ns.mu.Unlock()

	w.WriteHeader(status)
}

func (ns *NotificationServer) Requests() []RecordedRequest {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return append([]RecordedRequest(nil), ns.requests...)
}

// WaitForRequests polls until n requests arrived or the timeout expires.
func (ns *NotificationServer) WaitForRequests(n int, timeout time.Duration) []RecordedRequest {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if reqs := ns.Requests(); len(reqs) >= n {
			return reqs
		}
		time.Sleep(10 * time.Millisecond)
	}
	return ns.Requests()
}

// SafeBuffer is an io.Writer that can be read while other goroutines write.
type SafeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func CreateTempLogStructure(t *testing.T) string {
	tempDir := t.TempDir()

	structure := map[string]string{
		"default_pod-1_uid123/container-1/app.log":          "log content 1\nline 2\n",
		"default_pod-1_uid123/container-2/app.log":          "log content 2\nerror log\n",
		"kube-system_pod-2_uid456/container/app.log":        "log content 3\ninfo message\n",
		"default_pod-3_uid789/container/app.log":            "log content 4\n",
		"monitoring_pod-4_uid101/grafana/grafana.log":       "grafana starting\n",
		"monitoring_pod-4_uid101/prometheus/prometheus.log": "prometheus ready\n",
		"monitoring_pod-4_uid101/prometheus/notes.txt":      "not a log\n",
	}

	for path, content := range structure {
		fullPath := filepath.Join(tempDir, path)
		dir := filepath.Dir(fullPath)

		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}

		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", fullPath, err)
		}
	}

	return tempDir
}
