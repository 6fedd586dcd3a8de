package daemon

import (
	"sync"
)

type LogDaemonMetrics struct {
	FilesDiscovered    int
	FilesTailed        int
	FilesFailed        int
	FilesActive        int
	QueuedFiles        int
	FilesQueueCapacity int
	LinesForwarded     int
	mu                 sync.RWMutex
}

func (m *LogDaemonMetrics) IncFilesDiscovered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FilesDiscovered++
}

func (m *LogDaemonMetrics) IncFilesTailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FilesTailed++
}

func (m *LogDaemonMetrics) IncFilesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FilesFailed++
}

func (m *LogDaemonMetrics) IncFilesActive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FilesActive++
}

func (m *LogDaemonMetrics) DecFilesActive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FilesActive--
}

func (m *LogDaemonMetrics) IncQueuedFiles() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueuedFiles++
}

func (m *LogDaemonMetrics) DecQueuedFiles() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueuedFiles--
}

func (m *LogDaemonMetrics) IncLinesForwarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LinesForwarded++
}

func (m *LogDaemonMetrics) GetMetricsStamp() LogDaemonMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return LogDaemonMetrics{
		FilesDiscovered:    m.FilesDiscovered,
		FilesTailed:        m.FilesTailed,
		FilesFailed:        m.FilesFailed,
		FilesActive:        m.FilesActive,
		QueuedFiles:        m.QueuedFiles,
		FilesQueueCapacity: m.FilesQueueCapacity,
		LinesForwarded:     m.LinesForwarded,
	}
}

func (m *LogDaemonMetrics) GetQueueUsage() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FilesQueueCapacity == 0 {
		return 0
	}
	return float64(m.QueuedFiles) / float64(m.FilesQueueCapacity)
}
