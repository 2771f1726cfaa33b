package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// RelayStats aggregates the relay metrics served on /stats.
type RelayStats struct {
	EventsRelayed    uint64 `json:"events_relayed"`
	RoomEmits        uint64 `json:"room_emits"`
	Broadcasts       uint64 `json:"broadcasts"`
	DroppedFrames    uint64 `json:"dropped_frames"`
	ConnectedClients int    `json:"connected_clients"`
	OpenRooms        int    `json:"open_rooms"`
	ActiveTimers     int    `json:"active_timers"`
	AllocMemMb       uint64 `json:"alloc_mem_mb"`
	NumGC            uint32 `json:"num_gc"`
}

// Monitor keeps best-effort telemetry about the relay. Counters are
// atomic so the fan-out hot path never takes the stats lock; the Run loop
// folds them into a published snapshot on a fixed interval.
type Monitor struct {
	log      *slog.Logger
	interval time.Duration

	mu     sync.RWMutex
	latest RelayStats

	eventsRelayed uint64
	roomEmits     uint64
	broadcasts    uint64
	droppedFrames uint64

	gauges func() (clients, rooms, timers int)
}

func NewMonitor(log *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{log: log, interval: interval}
}

// BindGauges wires the point-in-time gauges (connected clients, open
// rooms, live timers) once the hub and store exist.
func (m *Monitor) BindGauges(fn func() (clients, rooms, timers int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = fn
}

func (m *Monitor) IncrEventsRelayed() { atomic.AddUint64(&m.eventsRelayed, 1) }
func (m *Monitor) IncrRoomEmits()     { atomic.AddUint64(&m.roomEmits, 1) }
func (m *Monitor) IncrBroadcasts()    { atomic.AddUint64(&m.broadcasts, 1) }
func (m *Monitor) IncrDroppedFrames() { atomic.AddUint64(&m.droppedFrames, 1) }

// Run refreshes the published snapshot until the context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping monitor")
			return nil
		case <-ticker.C:
			m.Refresh()
		}
	}
}

// Refresh folds the counters and system gauges into the snapshot.
func (m *Monitor) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest.EventsRelayed = atomic.LoadUint64(&m.eventsRelayed)
	m.latest.RoomEmits = atomic.LoadUint64(&m.roomEmits)
	m.latest.Broadcasts = atomic.LoadUint64(&m.broadcasts)
	m.latest.DroppedFrames = atomic.LoadUint64(&m.droppedFrames)

	if m.gauges != nil {
		m.latest.ConnectedClients, m.latest.OpenRooms, m.latest.ActiveTimers = m.gauges()
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.latest.AllocMemMb = ms.Alloc / 1024 / 1024
	m.latest.NumGC = ms.NumGC

	m.log.Debug("Stats refreshed",
		"events_relayed", m.latest.EventsRelayed,
		"room_emits", m.latest.RoomEmits,
		"dropped_frames", m.latest.DroppedFrames,
		"clients", m.latest.ConnectedClients,
	)
}

func (m *Monitor) GetLatest() RelayStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
