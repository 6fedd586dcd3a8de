package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chichichkin/HipChatSink/internal/logging"
	"github.com/Chichichkin/HipChatSink/internal/testutils"
)

const defaultScanInterval = 10 * time.Millisecond

func makeTestConfig(root string) Config {
	return Config{
		LogRootPath:   root,
		ScanInterval:  defaultScanInterval,
		Workers:       2,
		FileQueueSize: 10,
		NodeName:      "node-1",
	}
}

func TestDaemonService_Defaults(t *testing.T) {
	s := NewLogDaemonService(context.TODO(), Config{}, &testutils.MockEventSink{}, zerolog.Nop())

	assert.Equal(t, 1, s.config.Workers)
	assert.Equal(t, 1, s.config.FileQueueSize)
	assert.Equal(t, 30*time.Second, s.config.ScanInterval)
	assert.Equal(t, 30*time.Second, s.config.MetricsInterval)
}

func TestDaemonService_ContextCancellation(t *testing.T) {
	mockSink := &testutils.MockEventSink{}
	config := makeTestConfig(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	s := NewLogDaemonService(ctx, config, mockSink, zerolog.Nop())
	s.Start()

	cancel()
	time.Sleep(20 * time.Millisecond)

	select {
	case <-s.ctx.Done():
	default:
		t.Fatalf("service context not cancelled")
	}

	s.Stop()
}

func TestExtractLabels(t *testing.T) {
	config := makeTestConfig("/tmp")
	s := NewLogDaemonService(context.TODO(), config, &testutils.MockEventSink{}, zerolog.Nop())

	path := "/var/log/pods/default_pod-1_uid123/container-1/app.log"
	labels := s.extractLabels(path)
	assert.Equal(t, "node-1", labels["Node"])
	assert.Equal(t, "app.log", labels["File"])
	assert.Equal(t, "default", labels["Namespace"])
	assert.Equal(t, "pod-1", labels["Pod"])
	assert.Equal(t, "uid123", labels["PodUID"])
	assert.Equal(t, "container-1", labels["Container"])

	labels = s.extractLabels("/tmp/a.log")
	assert.Equal(t, "node-1", labels["Node"])
	assert.Equal(t, "a.log", labels["File"])
	_, hasNs := labels["Namespace"]
	_, hasPod := labels["Pod"]
	_, hasUID := labels["PodUID"]
	_, hasContainer := labels["Container"]
	assert.False(t, hasNs || hasPod || hasUID || hasContainer)
}

func TestDiscoverLogFiles_UsesTempStructure(t *testing.T) {
	root := testutils.CreateTempLogStructure(t)
	s := NewLogDaemonService(context.TODO(), makeTestConfig(root), &testutils.MockEventSink{}, zerolog.Nop())

	files, err := s.discoverLogFiles()
	assert.NoError(t, err)
	assert.Len(t, files, 6)
}

func TestScanFiles_QueuesEachFileOnce(t *testing.T) {
	tempDir := t.TempDir()
	_ = os.WriteFile(filepath.Join(tempDir, "a.log"), []byte("one\n"), 0644)
	_ = os.WriteFile(filepath.Join(tempDir, "b.log"), []byte("two\n"), 0644)
	_ = os.WriteFile(filepath.Join(tempDir, "c.txt"), []byte("ignore\n"), 0644)

	s := NewLogDaemonService(context.TODO(), makeTestConfig(tempDir), &testutils.MockEventSink{}, zerolog.Nop())

	// workers are not running, so queued files stay claimed
	s.scanFiles()
	s.scanFiles()

	metrics := s.metrics.GetMetricsStamp()
	assert.Equal(t, 2, metrics.QueuedFiles)
	assert.Equal(t, 2, metrics.FilesDiscovered)

	s.release(filepath.Join(tempDir, "a.log"))
	s.scanFiles()
	assert.Equal(t, 3, s.metrics.GetMetricsStamp().QueuedFiles)
	assert.Equal(t, 2, s.metrics.GetMetricsStamp().FilesDiscovered)
}

func TestScanFiles_QueueFullReleasesFile(t *testing.T) {
	tempDir := t.TempDir()
	_ = os.WriteFile(filepath.Join(tempDir, "a.log"), []byte("one\n"), 0644)
	_ = os.WriteFile(filepath.Join(tempDir, "b.log"), []byte("two\n"), 0644)

	config := makeTestConfig(tempDir)
	config.FileQueueSize = 1
	s := NewLogDaemonService(context.TODO(), config, &testutils.MockEventSink{}, zerolog.Nop())

	s.scanFiles()
	assert.Equal(t, 1, s.metrics.GetMetricsStamp().QueuedFiles)
	assert.Len(t, s.activeFiles, 1)
}

func TestDetectLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"2024-01-01 FATAL out of memory":     logging.Fatal,
		"panic: runtime error":               logging.Fatal,
		"level=error msg=\"request failed\"": logging.Error,
		"[ERR] connection refused":           logging.Error,
		"WARN disk usage 91%":                logging.Warning,
		"warning: deprecated flag":           logging.Warning,
		"DEBUG cache miss":                   logging.Debug,
		"trace: entering handler":            logging.Verbose,
		"server listening on :8080":          logging.Information,
		"errors are not counted here":        logging.Information,
		"WARN then ERROR in one line":        logging.Error,
	}
	for line, want := range cases {
		assert.Equal(t, want, detectLevel(line), line)
	}
}

func TestLineEvent(t *testing.T) {
	s := NewLogDaemonService(context.TODO(), makeTestConfig("/tmp"), &testutils.MockEventSink{}, zerolog.Nop())

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	event := s.lineEvent("ERROR {\"json\": true}", at, map[string]string{"File": "app.log"})

	assert.Equal(t, at, event.Timestamp)
	assert.Equal(t, logging.Error, event.Level)
	assert.Equal(t, lineTemplate, event.MessageTemplate)
	assert.Equal(t, "ERROR {\"json\": true}", event.Properties["Line"])
	assert.Equal(t, "app.log", event.Properties["File"])

	event = s.lineEvent("plain", time.Time{}, nil)
	assert.False(t, event.Timestamp.IsZero())
}

func TestProcessFile_TailsAppendedLines(t *testing.T) {
	mockSink := &testutils.MockEventSink{}
	tempDir := t.TempDir()
	file := filepath.Join(tempDir, "tailme.log")
	if err := os.WriteFile(file, []byte("start\n"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	config := makeTestConfig(tempDir)
	config.ScanInterval = 100 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := NewLogDaemonService(ctx, config, mockSink, zerolog.Nop())

	s.Start()

	time.Sleep(300 * time.Millisecond)

	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, _ = f.WriteString("INFO l1\n")
	_, _ = f.WriteString("ERROR l2\n")
	_ = f.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(mockSink.GetEvents()) >= 2 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	s.Stop()

	events := mockSink.GetEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "INFO l1", events[0].Properties["Line"])
	assert.Equal(t, logging.Information, events[0].Level)
	assert.Equal(t, "ERROR l2", events[1].Properties["Line"])
	assert.Equal(t, logging.Error, events[1].Level)
	assert.Equal(t, "tailme.log", events[1].Properties["File"])

	metrics := s.Metrics()
	assert.Equal(t, 2, metrics.LinesForwarded)
	assert.Equal(t, 1, metrics.FilesTailed)
}
