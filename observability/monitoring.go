// Package observability aggregates dispatcher telemetry. Counters are
// atomic so the hot routing path never takes a lock to report.
package observability

import (
	"sync/atomic"
)

type Metrics struct {
	MessagesPersisted  uint64
	PersistFailures    uint64
	MessagesDelivered  uint64
	DeliveryMisses     uint64
	TypingForwarded    uint64
	TypingDropped      uint64
	PresenceBroadcasts uint64
	SinkDrops          uint64
}

// Snapshot is a point-in-time copy, safe to log or serialize.
type Snapshot struct {
	MessagesPersisted  uint64 `json:"messages_persisted"`
	PersistFailures    uint64 `json:"persist_failures"`
	MessagesDelivered  uint64 `json:"messages_delivered"`
	DeliveryMisses     uint64 `json:"delivery_misses"`
	TypingForwarded    uint64 `json:"typing_forwarded"`
	TypingDropped      uint64 `json:"typing_dropped"`
	PresenceBroadcasts uint64 `json:"presence_broadcasts"`
	SinkDrops          uint64 `json:"sink_drops"`
}

func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) IncrMessagesPersisted()  { atomic.AddUint64(&m.MessagesPersisted, 1) }
func (m *Metrics) IncrPersistFailures()    { atomic.AddUint64(&m.PersistFailures, 1) }
func (m *Metrics) IncrMessagesDelivered()  { atomic.AddUint64(&m.MessagesDelivered, 1) }
func (m *Metrics) IncrDeliveryMisses()     { atomic.AddUint64(&m.DeliveryMisses, 1) }
func (m *Metrics) IncrTypingForwarded()    { atomic.AddUint64(&m.TypingForwarded, 1) }
func (m *Metrics) IncrTypingDropped()      { atomic.AddUint64(&m.TypingDropped, 1) }
func (m *Metrics) IncrPresenceBroadcasts() { atomic.AddUint64(&m.PresenceBroadcasts, 1) }
func (m *Metrics) IncrSinkDrops()          { atomic.AddUint64(&m.SinkDrops, 1) }

func (m *Metrics) GetLatest() Snapshot {
	return Snapshot{
		MessagesPersisted:  atomic.LoadUint64(&m.MessagesPersisted),
		PersistFailures:    atomic.LoadUint64(&m.PersistFailures),
		MessagesDelivered:  atomic.LoadUint64(&m.MessagesDelivered),
		DeliveryMisses:     atomic.LoadUint64(&m.DeliveryMisses),
		TypingForwarded:    atomic.LoadUint64(&m.TypingForwarded),
		TypingDropped:      atomic.LoadUint64(&m.TypingDropped),
		PresenceBroadcasts: atomic.LoadUint64(&m.PresenceBroadcasts),
		SinkDrops:          atomic.LoadUint64(&m.SinkDrops),
	}
}
