// Package hipchat forwards log events to a HipChat room as notifications.
//
// A Sink queues events and flushes them in batches, either when
// BatchPostingLimit events are waiting or when Period has elapsed. Every
// event of a batch is posted separately to
//
//	{BaseAddress}v2/room/{Room}/notification?auth_token={APIToken}
//
// with a JSON body carrying the formatted text, a color derived from the
// level and a notify flag set for Warning and above. Delivery failures are
// reported through the selflog package and are never returned to the caller.
package hipchat

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/Chichichkin/HipChatSink/internal/logging"
	"github.com/Chichichkin/HipChatSink/internal/logging/batch"
	"github.com/Chichichkin/HipChatSink/internal/logging/format"
)

const (
	DefaultBatchPostingLimit = 5
	DefaultPeriod            = 2 * time.Second
	DefaultTimeout           = 30 * time.Second
)

type options struct {
	outputTemplate    string
	minimumLevel      logging.Level
	batchPostingLimit int
	period            time.Duration
	queueLimit        int
	locale            language.Tag
	formatter         logging.Formatter
	httpClient        *http.Client
	timeout           time.Duration
}

// Option configures a Sink.
type Option func(*options)

// WithOutputTemplate sets the template used to render each event.
// Default: format.DefaultOutputTemplate.
func WithOutputTemplate(template string) Option {
	return func(o *options) { o.outputTemplate = template }
}

// WithMinimumLevel drops events below level. Default: logging.Minimum.
func WithMinimumLevel(level logging.Level) Option {
	return func(o *options) { o.minimumLevel = level }
}

// WithBatchPostingLimit sets the maximum number of events per batch. Default: 5.
func WithBatchPostingLimit(n int) Option {
	return func(o *options) { o.batchPostingLimit = n }
}

// WithPeriod sets the maximum time between flushes. Default: 2s.
func WithPeriod(d time.Duration) Option {
	return func(o *options) { o.period = d }
}

// WithQueueLimit caps the events waiting for a flush. Default: unbounded.
func WithQueueLimit(n int) Option {
	return func(o *options) { o.queueLimit = n }
}

// WithFormatProvider renders numbers in message properties for the given locale.
func WithFormatProvider(locale language.Tag) Option {
	return func(o *options) { o.locale = locale }
}

// WithFormatter replaces the output template formatter altogether.
func WithFormatter(f logging.Formatter) Option {
	return func(o *options) { o.formatter = f }
}

// WithHTTPClient sets the client used for posting. Its timeout is left as is.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Sink is the composition root: a batch processor draining into an Emitter.
// Emit is safe for concurrent use. Cancelling the constructor's context does
// not stop delivery; only Close does.
type Sink struct {
	processor    logging.BatchProcessor
	emitter      *Emitter
	minimumLevel logging.Level
	closeOnce    sync.Once
}

// New builds a sink posting to room with the default base address.
func New(ctx context.Context, room, apiToken string, opts ...Option) (*Sink, error) {
	return NewFromConnection(ctx, NewConnectionInfo(room, apiToken), opts...)
}

func NewFromConnection(ctx context.Context, conn *ConnectionInfo, opts ...Option) (*Sink, error) {
	if conn == nil {
		return nil, ErrNilConnectionInfo
	}

	o := options{
		outputTemplate:    format.DefaultOutputTemplate,
		minimumLevel:      logging.Minimum,
		batchPostingLimit: DefaultBatchPostingLimit,
		period:            DefaultPeriod,
		locale:            language.Und,
		timeout:           DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.batchPostingLimit < 1 {
		return nil, fmt.Errorf("%w: batch posting limit must be at least 1, got %d", ErrConfiguration, o.batchPostingLimit)
	}
	if o.period <= 0 {
		return nil, fmt.Errorf("%w: period must be positive, got %s", ErrConfiguration, o.period)
	}
	if o.queueLimit < 0 {
		return nil, fmt.Errorf("%w: queue limit must not be negative, got %d", ErrConfiguration, o.queueLimit)
	}
	if !o.minimumLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown minimum level %s", ErrConfiguration, o.minimumLevel)
	}

	if o.formatter == nil {
		o.formatter = format.New(o.outputTemplate, o.locale)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}

	// copy so later changes to conn do not leak into the sink
	connCopy := *conn
	emitter, err := NewEmitter(&connCopy, o.formatter, o.httpClient)
	if err != nil {
		return nil, err
	}

	processor := batch.NewBatchProcessor(ctx, emitter, logging.Config{
		BatchSize:  o.batchPostingLimit,
		Period:     o.period,
		QueueLimit: o.queueLimit,
	})
	return newSink(processor, emitter, o.minimumLevel), nil
}

// newSink starts processor, which must drain into emitter.
func newSink(processor logging.BatchProcessor, emitter *Emitter, minimumLevel logging.Level) *Sink {
	processor.Start()
	return &Sink{
		processor:    processor,
		emitter:      emitter,
		minimumLevel: minimumLevel,
	}
}

// Emit queues an event for delivery. Events below the minimum level are
// ignored. An event with a level outside the enumeration is a programming
// error and panics.
func (s *Sink) Emit(event logging.LogEvent) {
	if !event.Level.Valid() {
		panic(fmt.Sprintf("hipchat: cannot emit event with %s", event.Level))
	}
	if event.Level < s.minimumLevel {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.processor.Emit(event)
}

// Close flushes queued events and only then releases the HTTP transport.
// It is safe to call more than once.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.processor.Stop()
		s.emitter.Close()
	})
	return nil
}

func (s *Sink) Metrics() DeliveryMetrics {
	return s.emitter.Metrics()
}
