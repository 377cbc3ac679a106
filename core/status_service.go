package core

import (
	"context"
	"encoding/json"
	"time"
)

// StatusService reads hash-pool heartbeats published by every instance.
type StatusService struct {
	redis RedisClientRaw
}

func NewStatusService(redis RedisClientRaw) *StatusService {
	return &StatusService{redis: redis}
}

// Instances returns every live heartbeat; unreadable entries are skipped.
func (s *StatusService) Instances(ctx context.Context) ([]PoolHeartbeat, error) {
	iter := s.redis.Scan(ctx, 0, PoolHeartbeatPrefix+"*", 100).Iterator()
	var res []PoolHeartbeat
	for iter.Next(ctx) {
		val, err := s.redis.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var hb PoolHeartbeat
		if err := json.Unmarshal([]byte(val), &hb); err != nil {
			continue
		}
		res = append(res, hb)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// InstanceByID returns one heartbeat; redis.Nil when it has expired.
func (s *StatusService) InstanceByID(ctx context.Context, id string) (*PoolHeartbeat, error) {
	val, err := s.redis.Get(ctx, PoolHeartbeatKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var hb PoolHeartbeat
	if err := json.Unmarshal([]byte(val), &hb); err != nil {
		return nil, err
	}
	return &hb, nil
}

// SystemStatus is the aggregate served on /status.
type SystemStatus struct {
	Instances     []PoolHeartbeat `json:"instances"`
	Busy          int             `json:"busy"`
	Running       int             `json:"running"`
	UptimeSeconds int64           `json:"uptime_seconds"`
}

// Collect aggregates heartbeats. A nil service yields only uptime.
func (s *StatusService) Collect(ctx context.Context, startedAt time.Time) (SystemStatus, error) {
	st := SystemStatus{Instances: []PoolHeartbeat{}}
	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}
	if s == nil || s.redis == nil {
		return st, nil
	}
	instances, err := s.Instances(ctx)
	if err != nil {
		return st, err
	}
	for _, hb := range instances {
		if hb.Status == "busy" {
			st.Busy++
		}
		st.Running += hb.RunningCount
	}
	if instances != nil {
		st.Instances = instances
	}
	return st, nil
}

// PublicInstance is the part of a heartbeat that anonymous callers may see.
type PublicInstance struct {
	Workers        int    `json:"workers"`
	Status         string `json:"status"`
	RunningCount   int    `json:"running_count"`
	ProcessedTotal int64  `json:"processed_total"`
	FailedTotal    int64  `json:"failed_total"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// PublicStatus is what /status serves. Host identity, runtime figures and
// error text stay server-side.
type PublicStatus struct {
	Instances     []PublicInstance `json:"instances"`
	Busy          int              `json:"busy"`
	Running       int              `json:"running"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Public strips st down to PublicStatus.
func (st SystemStatus) Public() PublicStatus {
	out := PublicStatus{
		Instances:     make([]PublicInstance, 0, len(st.Instances)),
		Busy:          st.Busy,
		Running:       st.Running,
		UptimeSeconds: st.UptimeSeconds,
	}
	for _, hb := range st.Instances {
		out.Instances = append(out.Instances, PublicInstance{
			Workers:        hb.Workers,
			Status:         hb.Status,
			RunningCount:   hb.RunningCount,
			ProcessedTotal: hb.ProcessedTotal,
			FailedTotal:    hb.FailedTotal,
			UptimeSeconds:  hb.UptimeSeconds,
		})
	}
	return out
}
