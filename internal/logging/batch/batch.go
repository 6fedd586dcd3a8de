package batch

import (
	"context"
	"sync"
	"time"

	"github.com/Chichichkin/HipChatSink/internal/logging"
	"github.com/Chichichkin/HipChatSink/internal/selflog"
)

const (
	DefaultBatchSize = 5
	DefaultPeriod    = 2 * time.Second
)

// Processor queues events and hands them to a BatchEmitter when the queue
// reaches BatchSize or when Period elapses since the last flush. A single
// goroutine performs emission, so the emitter never sees concurrent calls and
// batches arrive in submission order.
type Processor struct {
	ctx        context.Context
	emitCtx    context.Context
	emitter    logging.BatchEmitter
	config     logging.Config
	queue      []logging.LogEvent
	queueMutex sync.Mutex
	stopped    bool
	ready      chan struct{}
	stopCtx    context.CancelFunc
	startOnce  sync.Once
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

var _ logging.BatchProcessor = (*Processor)(nil)

func NewBatchProcessor(ctx context.Context, emitter logging.BatchEmitter, config logging.Config) *Processor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Period <= 0 {
		config.Period = DefaultPeriod
	}

	// ctx only carries values; Stop is the one way to end the processor
	detached := context.WithoutCancel(ctx)
	nCtx, cancel := context.WithCancel(detached)
	return &Processor{
		ctx:     nCtx,
		emitCtx: detached,
		emitter: emitter,
		config:  config,
		ready:   make(chan struct{}, 1),
		stopCtx: cancel,
	}
}

// Emit queues an event for the next batch. It never blocks on delivery.
func (bp *Processor) Emit(event logging.LogEvent) {
	bp.queueMutex.Lock()

	if bp.stopped {
		bp.queueMutex.Unlock()
		selflog.Printf("Batch processor stopped, dropping %s event", event.Level)
		return
	}
	if bp.config.QueueLimit > 0 && len(bp.queue) >= bp.config.QueueLimit {
		bp.queueMutex.Unlock()
		selflog.Printf("Batch queue limit %d reached, dropping %s event", bp.config.QueueLimit, event.Level)
		return
	}

	bp.queue = append(bp.queue, event)
	full := len(bp.queue) >= bp.config.BatchSize
	bp.queueMutex.Unlock()

	if full {
		select {
		case bp.ready <- struct{}{}:
		default:
		}
	}
}

func (bp *Processor) Start() {
	bp.startOnce.Do(func() {
		bp.wg.Add(1)
		go bp.run()
	})
}

// Stop waits for any in-flight batch, then flushes everything still queued
// before returning. Events emitted afterwards are dropped.
func (bp *Processor) Stop() {
	bp.stopOnce.Do(func() {
		bp.queueMutex.Lock()
		bp.stopped = true
		bp.queueMutex.Unlock()

		bp.stopCtx()
		bp.wg.Wait()

		bp.flush(false)
	})
}

// Pending returns the number of queued events.
func (bp *Processor) Pending() int {
	bp.queueMutex.Lock()
	defer bp.queueMutex.Unlock()
	return len(bp.queue)
}

func (bp *Processor) run() {
	defer bp.wg.Done()

	timer := time.NewTimer(bp.config.Period)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			bp.flush(false)
			timer.Reset(bp.config.Period)

		case <-bp.ready:
			bp.flush(true)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(bp.config.Period)

		case <-bp.ctx.Done():
			return
		}
	}
}

// flush emits queued events in BatchSize chunks. With fullOnly set, a trailing
// partial chunk stays queued for the timer.
func (bp *Processor) flush(fullOnly bool) {
	for {
		batch := bp.takeBatch(fullOnly)
		if batch == nil {
			return
		}
		if err := bp.emitter.EmitBatch(bp.emitCtx, batch); err != nil {
			selflog.Printf("Failed to emit batch of %d events: %v", len(batch), err)
		}
	}
}

func (bp *Processor) takeBatch(fullOnly bool) []logging.LogEvent {
	bp.queueMutex.Lock()
	defer bp.queueMutex.Unlock()

	if len(bp.queue) == 0 || (fullOnly && len(bp.queue) < bp.config.BatchSize) {
		return nil
	}

	n := min(len(bp.queue), bp.config.BatchSize)
	batchToSend := make([]logging.LogEvent, n)
	copy(batchToSend, bp.queue)

	remaining := copy(bp.queue, bp.queue[n:])
	clear(bp.queue[remaining:])
	bp.queue = bp.queue[:remaining]

	return batchToSend
}
