package core

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// PoolState aggregates hash-pool activity for one server instance and
// periodically publishes it as a PoolHeartbeat.
type PoolState struct {
	mu       sync.Mutex
	hb       PoolHeartbeat
	running  map[string]int
	interval time.Duration
}

func NewPoolState(instanceID, hostname string, workers int) *PoolState {
	now := time.Now()
	return &PoolState{
		hb: PoolHeartbeat{
			InstanceID: instanceID,
			Hostname:   hostname,
			PID:        os.Getpid(),
			Workers:    workers,
			Status:     "starting",
			StartedAt:  now,
			UpdatedAt:  now,
		},
		running:  make(map[string]int),
		interval: 5 * time.Second,
	}
}

// Start flushes the heartbeat immediately and then every interval until ctx ends.
func (s *PoolState) Start(ctx context.Context, client RedisClientRaw) {
	s.flush(ctx, client)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx, client)
		}
	}
}

// JobStarted marks one more job of kind as running.
func (s *PoolState) JobStarted(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[kind]++
	s.updateRunningLocked()
}

// JobFinished records completion of a job of kind.
func (s *PoolState) JobFinished(kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[kind] > 0 {
		s.running[kind]--
	}
	if s.running[kind] == 0 {
		delete(s.running, kind)
	}
	s.hb.ProcessedTotal++
	if err != nil {
		s.hb.FailedTotal++
		s.hb.LastError = err.Error()
	}
	s.updateRunningLocked()
}

// Snapshot returns a copy of the current heartbeat.
func (s *PoolState) Snapshot() PoolHeartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	hb := s.hb
	hb.UptimeSeconds = int64(time.Since(hb.StartedAt).Seconds())
	return hb
}

func (s *PoolState) updateRunningLocked() {
	count := 0
	for _, n := range s.running {
		count += n
	}
	s.hb.RunningCount = count
	if count == 0 {
		s.hb.Status = "idle"
	} else {
		s.hb.Status = "busy"
	}
}

func (s *PoolState) flush(ctx context.Context, client RedisClientRaw) {
	hb := s.Snapshot()
	hb.UpdateRuntimeStats()
	if err := SaveHeartbeat(ctx, client, hb); err != nil && ctx.Err() == nil {
		log.Printf("[hashpool] heartbeat flush failed: %v", err)
	}
}
