// Package daemon discovers log files under a root directory, follows them and
// turns every new line into a log event for a sink.
package daemon

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hpcloud/tail"
	"github.com/rs/zerolog"

	"github.com/Chichichkin/HipChatSink/internal/logging"
)

// EventSink receives the events produced from tailed lines.
type EventSink interface {
	Emit(event logging.LogEvent)
}

type LogDaemonService struct {
	config        Config
	sink          EventSink
	logger        zerolog.Logger
	fileQueue     chan string
	workersWg     sync.WaitGroup
	subServicesWg sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	metrics       *LogDaemonMetrics

	filesMutex  sync.Mutex
	seenFiles   map[string]struct{}
	activeFiles map[string]struct{}
}

type Config struct {
	LogRootPath  string
	ScanInterval time.Duration
	// Workers bounds the number of files followed at the same time.
	Workers       int
	FileQueueSize int
	NodeName      string
	// If > 0, stop tailing a file after this period without new lines.
	// The next scan picks it up again from its end.
	FileIdleTimeout time.Duration
	MetricsInterval time.Duration
}

// lineTemplate keeps the raw line out of message template parsing.
const lineTemplate = "{Line:l}"

// NewLogDaemonService creates 2 + config.Workers goroutines on Start().
func NewLogDaemonService(ctx context.Context, config Config, sink EventSink, logger zerolog.Logger) *LogDaemonService {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.FileQueueSize <= 0 {
		config.FileQueueSize = config.Workers
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = 30 * time.Second
	}
	if config.MetricsInterval <= 0 {
		config.MetricsInterval = 30 * time.Second
	}

	nCtx, cancel := context.WithCancel(ctx)
	return &LogDaemonService{
		config:    config,
		sink:      sink,
		logger:    logger.With().Str("comp", "daemon").Logger(),
		fileQueue: make(chan string, config.FileQueueSize),
		ctx:       nCtx,
		cancel:    cancel,
		metrics: &LogDaemonMetrics{
			FilesQueueCapacity: config.FileQueueSize,
		},
		seenFiles:   make(map[string]struct{}),
		activeFiles: make(map[string]struct{}),
	}
}

func (s *LogDaemonService) Start() {
	s.logger.Info().
		Str("root", s.config.LogRootPath).
		Int("workers", s.config.Workers).
		Int("queue_size", s.config.FileQueueSize).
		Msg("Starting log daemon service")

	for i := 0; i < s.config.Workers; i++ {
		s.workersWg.Add(1)
		go s.worker(i)
	}

	s.subServicesWg.Add(1)
	go s.scanner()

	s.subServicesWg.Add(1)
	go s.metricsReporter()
}

func (s *LogDaemonService) Stop() {
	s.logger.Info().Msg("Stopping log daemon service")
	s.cancel()

	s.subServicesWg.Wait()

	close(s.fileQueue)
	s.workersWg.Wait()

	s.logger.Info().Msg("Log daemon service stopped")
}

func (s *LogDaemonService) Metrics() LogDaemonMetrics {
	return s.metrics.GetMetricsStamp()
}

func (s *LogDaemonService) worker(id int) {
	defer s.workersWg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Int("worker", id).Interface("panic", r).Msg("Worker panicked")
		}
	}()

	for {
		select {
		case filePath, ok := <-s.fileQueue:
			if !ok {
				return
			}
			s.metrics.DecQueuedFiles()
			s.processFile(s.ctx, filePath)
			s.release(filePath)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) processFile(ctx context.Context, filePath string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("file", filePath).Interface("panic", r).Msg("File processing panicked")
			s.metrics.IncFilesFailed()
		}
	}()

	t, err := tail.TailFile(filePath, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to tail file")
		s.metrics.IncFilesFailed()
		return
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	s.metrics.IncFilesTailed()
	s.metrics.IncFilesActive()
	defer s.metrics.DecFilesActive()

	checkTicker := time.NewTicker(1 * time.Second)
	defer checkTicker.Stop()

	labels := s.extractLabels(filePath)
	lastActivity := time.Now()

	for {
		select {
		case line := <-t.Lines:
			if line == nil {
				continue
			}
			if line.Err != nil {
				s.logger.Warn().Err(line.Err).Str("file", filePath).Msg("Error reading file")
				continue
			}
			if strings.TrimSpace(line.Text) == "" {
				continue
			}

			s.sink.Emit(s.lineEvent(line.Text, line.Time, labels))
			s.metrics.IncLinesForwarded()
			lastActivity = time.Now()

		case <-checkTicker.C:
			// waking up from blocking line reading to check context status and idle timeout
			if s.config.FileIdleTimeout > 0 && time.Since(lastActivity) > s.config.FileIdleTimeout {
				s.logger.Debug().Str("file", filePath).Msg("Releasing idle file")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) lineEvent(text string, at time.Time, labels map[string]string) logging.LogEvent {
	if at.IsZero() {
		at = time.Now()
	}

	props := make(map[string]any, len(labels)+1)
	for k, v := range labels {
		props[k] = v
	}
	props["Line"] = text

	return logging.LogEvent{
		Timestamp:       at,
		Level:           detectLevel(text),
		MessageTemplate: lineTemplate,
		Properties:      props,
	}
}

func (s *LogDaemonService) scanner() {
	defer s.subServicesWg.Done()

	s.scanFiles()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scanFiles()

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) scanFiles() {
	files, err := s.discoverLogFiles()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Error discovering log files")
		return
	}

	for _, file := range files {
		if !s.claim(file) {
			continue
		}
		select {
		case s.fileQueue <- file:
			s.metrics.IncQueuedFiles()
		case <-s.ctx.Done():
			s.release(file)
			return

		default:
			s.release(file)
			s.logger.Warn().
				Int("queued", len(s.fileQueue)).
				Int("capacity", cap(s.fileQueue)).
				Str("file", file).
				Msg("File queue full, skipping")
		}
	}
}

// claim marks file as queued or tailed. It returns false if it already is.
func (s *LogDaemonService) claim(file string) bool {
	s.filesMutex.Lock()
	defer s.filesMutex.Unlock()

	if _, ok := s.seenFiles[file]; !ok {
		s.metrics.IncFilesDiscovered()
		s.seenFiles[file] = struct{}{}
	}
	if _, ok := s.activeFiles[file]; ok {
		return false
	}
	s.activeFiles[file] = struct{}{}
	return true
}

func (s *LogDaemonService) release(file string) {
	s.filesMutex.Lock()
	defer s.filesMutex.Unlock()
	delete(s.activeFiles, file)
}

func (s *LogDaemonService) metricsReporter() {
	defer s.subServicesWg.Done()

	ticker := time.NewTicker(s.config.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics := s.metrics.GetMetricsStamp()

			s.logger.Info().
				Int("files_active", metrics.FilesActive).
				Int("files_discovered", metrics.FilesDiscovered).
				Int("files_failed", metrics.FilesFailed).
				Int("queued", metrics.QueuedFiles).
				Int("queue_usage_pct", int(s.metrics.GetQueueUsage()*100)).
				Int("lines_forwarded", metrics.LinesForwarded).
				Msg("Daemon metrics")

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) discoverLogFiles() ([]string, error) {
	var logFiles []string

	err := filepath.Walk(s.config.LogRootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("Error accessing path")
			return nil
		}

		if !info.IsDir() && strings.HasSuffix(info.Name(), ".log") {
			logFiles = append(logFiles, path)
		}
		return nil
	})

	return logFiles, err
}

// extractLabels adds pod metadata for paths laid out as
// /var/log/pods/<namespace>_<pod>_<uid>/<container>/<n>.log.
func (s *LogDaemonService) extractLabels(filePath string) map[string]string {
	labels := map[string]string{
		"Node": s.config.NodeName,
		"File": filepath.Base(filePath),
	}

	parts := strings.Split(filePath, "/")
	if len(parts) >= 5 {
		podParts := strings.Split(parts[4], "_")
		if len(podParts) >= 3 {
			labels["Namespace"] = podParts[0]
			labels["Pod"] = podParts[1]
			labels["PodUID"] = podParts[2]
		}

		if len(parts) >= 6 {
			labels["Container"] = parts[5]
		}
	}

	return labels
}

var levelKeywords = []struct {
	word  string
	level logging.Level
}{
	{"FATAL", logging.Fatal},
	{"PANIC", logging.Fatal},
	{"CRITICAL", logging.Fatal},
	{"ERROR", logging.Error},
	{"ERR", logging.Error},
	{"WARNING", logging.Warning},
	{"WARN", logging.Warning},
	{"DEBUG", logging.Debug},
	{"TRACE", logging.Verbose},
}

// detectLevel picks the most severe level keyword found in a line.
func detectLevel(line string) logging.Level {
	words := strings.FieldsFunc(strings.ToUpper(line), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w] = struct{}{}
	}

	for _, kw := range levelKeywords {
		if _, ok := present[kw.word]; ok {
			return kw.level
		}
	}
	return logging.Information
}
