package hipchat

import (
	"sync"
)

type DeliveryMetrics struct {
	BatchesEmitted    int
	EventsPosted      int
	DeliveryFailures  int
	TransportFailures int
	mu                sync.RWMutex
}

func (m *DeliveryMetrics) IncBatchesEmitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesEmitted++
}

func (m *DeliveryMetrics) IncEventsPosted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsPosted++
}

func (m *DeliveryMetrics) IncDeliveryFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveryFailures++
}

func (m *DeliveryMetrics) IncTransportFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransportFailures++
}

func (m *DeliveryMetrics) GetMetricsStamp() DeliveryMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return DeliveryMetrics{
		BatchesEmitted:    m.BatchesEmitted,
		EventsPosted:      m.EventsPosted,
		DeliveryFailures:  m.DeliveryFailures,
		TransportFailures: m.TransportFailures,
	}
}

// GetFailureRate is the share of delivery attempts that did not succeed.
func (m *DeliveryMetrics) GetFailureRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attempts := m.EventsPosted + m.DeliveryFailures + m.TransportFailures
	if attempts == 0 {
		return 0
	}
	return float64(m.DeliveryFailures+m.TransportFailures) / float64(attempts)
}
