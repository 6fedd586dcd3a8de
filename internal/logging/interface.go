package logging

import (
	"context"
	"io"
	"time"
)

type LogEvent struct {
	Timestamp       time.Time
	Level           Level
	MessageTemplate string
	Properties      map[string]any
	// Err is the error associated with the event, if any.
	Err error
}

// Formatter renders a single event as text.
type Formatter interface {
	Format(w io.Writer, event LogEvent) error
}

// BatchEmitter receives flushed batches. Implementations are never called
// concurrently by the batch processor.
type BatchEmitter interface {
	EmitBatch(ctx context.Context, events []LogEvent) error
}

type BatchProcessor interface {
	Emit(event LogEvent)
	Start()
	Stop()
}

type Config struct {
	BatchSize int
	Period    time.Duration
	// QueueLimit caps the number of events waiting for a flush. Zero means unbounded.
	QueueLimit int
}
