package hipchat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryMetrics_BasicOperations(t *testing.T) {
	metrics := &DeliveryMetrics{}

	metrics.IncBatchesEmitted()
	metrics.IncEventsPosted()
	metrics.IncEventsPosted()
	metrics.IncDeliveryFailures()
	metrics.IncTransportFailures()

	result := metrics.GetMetricsStamp()
	assert.Equal(t, 1, result.BatchesEmitted)
	assert.Equal(t, 2, result.EventsPosted)
	assert.Equal(t, 1, result.DeliveryFailures)
	assert.Equal(t, 1, result.TransportFailures)
	assert.InDelta(t, 0.5, metrics.GetFailureRate(), 1e-9)
}

func TestDeliveryMetrics_FailureRateEmpty(t *testing.T) {
	metrics := &DeliveryMetrics{}
	assert.Equal(t, 0.0, metrics.GetFailureRate())
}

func TestDeliveryMetrics_ConcurrentUpdates(t *testing.T) {
	metrics := &DeliveryMetrics{}

	var wg sync.WaitGroup
	inc := func(fn func()) {
		for i := 0; i < 1000; i++ {
			fn()
		}
		wg.Done()
	}

	wg.Add(4)
	go inc(metrics.IncBatchesEmitted)
	go inc(metrics.IncEventsPosted)
	go inc(metrics.IncDeliveryFailures)
	go inc(metrics.IncTransportFailures)
	wg.Wait()

	stamp := metrics.GetMetricsStamp()
	assert.Equal(t, 1000, stamp.BatchesEmitted)
	assert.Equal(t, 1000, stamp.EventsPosted)
	assert.Equal(t, 1000, stamp.DeliveryFailures)
	assert.Equal(t, 1000, stamp.TransportFailures)
}
