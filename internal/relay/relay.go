package relay

import (
	"sync/atomic"

	"github.com/audiolibrelab/jamscope/internal/audio"
)

// Snapshot is the most recent delivery plus the recording statistics at
// the time it arrived. Snapshots are immutable once published.
type Snapshot struct {
	Samples []byte
	Format  audio.Format
	Stats   Stats
	// Session is false when no recording session consumed this delivery
	Session bool
	Seq     uint64
}

// Frames returns the number of whole sample frames in the buffer
func (s *Snapshot) Frames() int {
	if s == nil || s.Format.BlockAlign() == 0 {
		return 0
	}
	return len(s.Samples) / s.Format.BlockAlign()
}

// Sink consumes deliveries on the capture thread. It returns the current
// session statistics and whether a session is active.
type Sink interface {
	Consume(buf []byte, format audio.Format) (Stats, bool)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(buf []byte, format audio.Format) (Stats, bool)

func (f SinkFunc) Consume(buf []byte, format audio.Format) (Stats, bool) {
	return f(buf, format)
}

// Relay hands deliveries from the capture thread to the sink and publishes
// them for the render loop. One goroutine calls OnDelivery; any number may
// call Snapshot.
type Relay struct {
	sink    Sink
	current atomic.Pointer[Snapshot]
	seq     uint64
}

// New creates a relay forwarding deliveries to sink. A nil sink only
// publishes snapshots.
func New(sink Sink) *Relay {
	return &Relay{sink: sink}
}

// OnDelivery copies buf before returning, since the capture subsystem
// reuses it, and swaps in a new snapshot. It matches audio.DeliveryFunc.
func (r *Relay) OnDelivery(buf []byte, format audio.Format) {
	samples := make([]byte, len(buf))
	copy(samples, buf)

	stats := NewStats()
	active := false
	if r.sink != nil {
		stats, active = r.sink.Consume(samples, format)
	}

	r.seq++
	r.current.Store(&Snapshot{
		Samples: samples,
		Format:  format,
		Stats:   stats,
		Session: active,
		Seq:     r.seq,
	})
}

// Snapshot returns the latest published delivery, or nil before the first
func (r *Relay) Snapshot() *Snapshot {
	return r.current.Load()
}

// Reset drops the published snapshot
func (r *Relay) Reset() {
	r.current.Store(nil)
}
