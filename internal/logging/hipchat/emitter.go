package hipchat

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Chichichkin/HipChatSink/internal/logging"
	"github.com/Chichichkin/HipChatSink/internal/selflog"
)

// Emitter posts every event of a batch as its own room notification, one at
// a time and in batch order. Failures are reported to selflog and never
// stop the rest of the batch. An event the formatter rejects is posted with
// its raw message template.
type Emitter struct {
	client    *Client
	formatter logging.Formatter
	metrics   *DeliveryMetrics
}

func NewEmitter(conn *ConnectionInfo, formatter logging.Formatter, httpClient *http.Client) (*Emitter, error) {
	if conn == nil {
		return nil, ErrNilConnectionInfo
	}
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if formatter == nil {
		return nil, fmt.Errorf("%w: formatter is required", ErrConfiguration)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Emitter{
		client:    NewClient(*conn, httpClient),
		formatter: formatter,
		metrics:   &DeliveryMetrics{},
	}, nil
}

func (e *Emitter) EmitBatch(ctx context.Context, events []logging.LogEvent) error {
	e.metrics.IncBatchesEmitted()
	for _, event := range events {
		e.emit(ctx, event)
	}
	return nil
}

func (e *Emitter) emit(ctx context.Context, event logging.LogEvent) {
	var payload strings.Builder
	message := event.MessageTemplate
	if err := e.formatter.Format(&payload, event); err != nil {
		// still post, with the unrendered template as the text
		selflog.Printf("Formatting HipChat message failed: %v", err)
	} else {
		message = payload.String()
	}

	result, err := e.client.Post(ctx, Notification{
		Color:   ColorFor(event.Level),
		Message: message,
		Notify:  ShouldNotify(event.Level),
	})
	if err != nil {
		e.metrics.IncTransportFailures()
		selflog.Printf("Posting HipChat message failed %s: %v", "Error", err)
		return
	}
	if result.OK() {
		e.metrics.IncEventsPosted()
		return
	}

	e.metrics.IncDeliveryFailures()
	selflog.Printf("Posting HipChat message failed %s: %v", "StatusCode", result.StatusCode)
	selflog.Printf("Posting HipChat message failed %s: %v", "Reason", result.Reason)
}

func (e *Emitter) Metrics() DeliveryMetrics {
	return e.metrics.GetMetricsStamp()
}

func (e *Emitter) Close() {
	e.client.Close()
}
