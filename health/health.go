// Package health runs the periodic loop that probes stale pool connections,
// reconnects failed ones, sweeps idle rooms, and publishes one aggregate
// status snapshot per iteration.
package health

import (
	"context"
	"time"

	"github.com/lattice-voice/callcore/admission"
	"github.com/lattice-voice/callcore/logger"
	"github.com/lattice-voice/callcore/metrics/prometheus"
	"github.com/lattice-voice/callcore/pool"
)

// DefaultInterval is the default period between observer iterations.
const DefaultInterval = 30 * time.Second

// Pool is the narrow surface the observer needs from a pool.Pool[T],
// independent of the pooled client type.
type Pool interface {
	Snapshot() []pool.EntrySnapshot
	ProbeStale(ctx context.Context, interval time.Duration)
	Size() int
}

// SnapshotPublisher publishes a point-in-time status record to an external
// store (e.g. Redis), for dashboards or other processes to read.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap Snapshot) error
}

// PoolStatus is the computed aggregate over one pool's entries.
type PoolStatus struct {
	Total      int
	InUse      int
	Healthy    int
	Failed     int
	MinLatency time.Duration
	AvgLatency time.Duration
	MaxLatency time.Duration
	Quality    float64
}

// Snapshot is one observer iteration's full status record.
type Snapshot struct {
	Timestamp    time.Time
	Pool         PoolStatus
	RoomsActive  int
	RoomsCleaned []string
}

// Observer runs the periodic health loop.
type Observer struct {
	pool       Pool
	ledger     *admission.Ledger
	interval   time.Duration
	deleteRoom admission.DeleteRoomFunc
	publisher  SnapshotPublisher
}

// New constructs an observer. publisher may be nil, in which case snapshots
// are published only to the Prometheus gauges.
func New(p Pool, ledger *admission.Ledger, interval time.Duration, deleteRoom admission.DeleteRoomFunc, publisher SnapshotPublisher) *Observer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Observer{pool: p, ledger: ledger, interval: interval, deleteRoom: deleteRoom, publisher: publisher}
}

// Run executes the periodic loop until ctx is canceled. Cancellation is
// cooperative: the current iteration always completes before the loop exits.
func (o *Observer) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runIteration(ctx)
		}
	}
}

// RunOnce executes a single iteration immediately, for callers that want to
// drive the loop explicitly (e.g. in tests).
func (o *Observer) RunOnce(ctx context.Context) Snapshot {
	return o.runIteration(ctx)
}

func (o *Observer) runIteration(ctx context.Context) Snapshot {
	o.pool.ProbeStale(ctx, o.interval)

	entries := o.pool.Snapshot()
	poolStatus := aggregatePool(entries)

	var cleaned []string
	if o.ledger != nil {
		cleaned = o.ledger.CleanupIdleRooms(o.deleteRoom)
	}

	snap := Snapshot{
		Timestamp:    time.Now(),
		Pool:         poolStatus,
		RoomsActive:  o.roomsActive(),
		RoomsCleaned: cleaned,
	}

	o.publish(ctx, snap)
	return snap
}

func (o *Observer) roomsActive() int {
	if o.ledger == nil {
		return 0
	}
	return o.ledger.RoomCount()
}

func (o *Observer) publish(ctx context.Context, snap Snapshot) {
	prometheus.SetPoolStatus(prometheus.PoolStatus{
		Total:      snap.Pool.Total,
		InUse:      snap.Pool.InUse,
		Healthy:    snap.Pool.Healthy,
		Failed:     snap.Pool.Failed,
		MinLatency: snap.Pool.MinLatency.Seconds(),
		AvgLatency: snap.Pool.AvgLatency.Seconds(),
		MaxLatency: snap.Pool.MaxLatency.Seconds(),
		Quality:    snap.Pool.Quality,
	})
	prometheus.SetRoomsActive(snap.RoomsActive)
	for range snap.RoomsCleaned {
		prometheus.RecordRoomCleaned()
	}

	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishSnapshot(ctx, snap); err != nil {
		logger.Warn("health: failed to publish snapshot", "error", err)
	}
}

// aggregatePool computes the pool-wide status record from individual entry
// snapshots: total/in-use/healthy/failed counts, latency min/avg/max over
// entries with observed latency, and a quality score averaged across
// entries that have served at least one request.
func aggregatePool(entries []pool.EntrySnapshot) PoolStatus {
	status := PoolStatus{Total: len(entries)}
	if len(entries) == 0 {
		return status
	}

	var (
		latencySum   time.Duration
		latencyCount int
		qualitySum   float64
		qualityCount int
	)

	for i, e := range entries {
		if e.InUse {
			status.InUse++
		}
		switch e.State {
		case pool.Connected:
			status.Healthy++
		case pool.Failed:
			status.Failed++
		}

		if e.AvgLatency > 0 {
			latencySum += e.AvgLatency
			latencyCount++
			if i == 0 || e.AvgLatency < status.MinLatency || status.MinLatency == 0 {
				status.MinLatency = e.AvgLatency
			}
			if e.AvgLatency > status.MaxLatency {
				status.MaxLatency = e.AvgLatency
			}
		}

		if e.Requests > 0 {
			qualitySum += entryQuality(e)
			qualityCount++
		}
	}

	if latencyCount > 0 {
		status.AvgLatency = latencySum / time.Duration(latencyCount)
	}
	if qualityCount > 0 {
		status.Quality = qualitySum / float64(qualityCount)
	}

	return status
}

// entryQuality is mean(success_rate, clamp(1 - avg_latency_ms/1000, 0, 1)).
func entryQuality(e pool.EntrySnapshot) float64 {
	successRate := 1.0
	if e.Requests > 0 {
		successRate = float64(e.Requests-e.FailedRequests) / float64(e.Requests)
	}

	latencyScore := 1 - float64(e.AvgLatency.Milliseconds())/1000
	if latencyScore < 0 {
		latencyScore = 0
	}
	if latencyScore > 1 {
		latencyScore = 1
	}

	return (successRate + latencyScore) / 2
}
