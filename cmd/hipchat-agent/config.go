package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/Chichichkin/HipChatSink/internal/daemon"
	"github.com/Chichichkin/HipChatSink/internal/logging"
	"github.com/Chichichkin/HipChatSink/internal/logging/hipchat"
	"github.com/Chichichkin/HipChatSink/internal/selflog"
)

type AppConfig struct {
	Room              string        `arg:"env:HIPCHAT_ROOM,required" help:"room id or name notifications are posted to"`
	Token             string        `arg:"env:HIPCHAT_TOKEN,required" help:"room API token"`
	BaseAddress       string        `arg:"--base-address,env:HIPCHAT_BASE_ADDRESS" default:"https://api.hipchat.com/"`
	OutputTemplate    string        `arg:"--output-template,env:OUTPUT_TEMPLATE" help:"template used to render each line"`
	MinLevel          string        `arg:"--min-level,env:MIN_LEVEL" default:"verbose"`
	BatchPostingLimit int           `arg:"--batch-posting-limit,env:BATCH_POSTING_LIMIT" default:"5"`
	Period            time.Duration `arg:"env:PERIOD" default:"2s"`
	Timeout           time.Duration `arg:"env:HTTP_TIMEOUT" default:"30s"`
	QueueLimit        int           `arg:"--queue-limit,env:QUEUE_LIMIT" default:"100000"`
	Locale            string        `arg:"env:LOCALE" help:"BCP 47 tag used to format numbers, e.g. de-DE"`
	LogPath           string        `arg:"--log-path,env:LOG_PATH" default:"/var/log/pods"`
	Workers           int           `arg:"env:WORKERS" default:"10"`
	ScanInterval      time.Duration `arg:"--scan-interval,env:SCAN_INTERVAL" default:"30s"`
	FileIdleTimeout   time.Duration `arg:"--file-idle-timeout,env:FILE_IDLE_TIMEOUT" default:"5m"`
	NodeName          string        `arg:"--node-name,env:NODE_NAME" default:"unknown"`
	SelfLog           string        `arg:"--selflog,env:SELFLOG" default:"stderr" help:"where sink diagnostics go: stderr, stdout or off"`
	LogLevel          string        `arg:"--log-level,env:LOG_LEVEL" default:"info"`
}

func (AppConfig) Description() string {
	return "hipchat-agent follows log files and posts every new line to a HipChat room"
}

func (c AppConfig) sinkOptions() ([]hipchat.Option, error) {
	level, err := logging.ParseLevel(c.MinLevel)
	if err != nil {
		return nil, fmt.Errorf("min level: %w", err)
	}

	opts := []hipchat.Option{
		hipchat.WithMinimumLevel(level),
		hipchat.WithBatchPostingLimit(c.BatchPostingLimit),
		hipchat.WithPeriod(c.Period),
		hipchat.WithTimeout(c.Timeout),
		hipchat.WithQueueLimit(c.QueueLimit),
	}
	if c.OutputTemplate != "" {
		opts = append(opts, hipchat.WithOutputTemplate(c.OutputTemplate))
	}
	if c.Locale != "" {
		tag, err := language.Parse(c.Locale)
		if err != nil {
			return nil, fmt.Errorf("locale: %w", err)
		}
		opts = append(opts, hipchat.WithFormatProvider(tag))
	}
	return opts, nil
}

func (c AppConfig) connectionInfo() *hipchat.ConnectionInfo {
	conn := hipchat.NewConnectionInfo(c.Room, c.Token)
	if c.BaseAddress != "" {
		conn.BaseAddress = c.BaseAddress
	}
	return conn
}

func (c AppConfig) daemonConfig() daemon.Config {
	return daemon.Config{
		LogRootPath:     c.LogPath,
		ScanInterval:    c.ScanInterval,
		Workers:         c.Workers,
		FileQueueSize:   c.Workers * 5,
		NodeName:        c.NodeName,
		FileIdleTimeout: c.FileIdleTimeout,
	}
}

func selfLogWriter(target string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case "stderr", "":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "off", "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown selflog target %q", target)
}

func configureSelfLog(target string) error {
	w, err := selfLogWriter(target)
	if err != nil {
		return err
	}
	selflog.Enable(w)
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}
