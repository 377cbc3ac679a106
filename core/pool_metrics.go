package core

import (
	"context"
	"encoding/json"
	"runtime"
	"time"
)

const (
	PoolHeartbeatPrefix = "hashpool:heartbeat:"
	PoolHeartbeatTTL    = 45 * time.Second
)

// PoolHeartbeatKey returns the Redis key for an instance.
func PoolHeartbeatKey(instanceID string) string {
	return PoolHeartbeatPrefix + instanceID
}

// SaveHeartbeat stores the heartbeat as JSON with PoolHeartbeatTTL.
func SaveHeartbeat(ctx context.Context, client RedisClientRaw, hb PoolHeartbeat) error {
	hb.UpdatedAt = time.Now()
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	return client.Set(ctx, PoolHeartbeatKey(hb.InstanceID), data, PoolHeartbeatTTL).Err()
}

// PoolHeartbeat is the hash-pool status each server instance publishes.
type PoolHeartbeat struct {
	InstanceID     string    `json:"instance_id"`
	Hostname       string    `json:"hostname"`
	PID            int       `json:"pid"`
	Workers        int       `json:"workers"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	Status         string    `json:"status"` // idle|busy|starting
	RunningCount   int       `json:"running_count"`
	ProcessedTotal int64     `json:"processed_total"`
	FailedTotal    int64     `json:"failed_total"`
	LastError      string    `json:"last_error,omitempty"`
	MemorySysBytes uint64    `json:"memory_sys_bytes"`
	NumGoroutine   int       `json:"num_goroutine"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateRuntimeStats overwrites memory and goroutine figures with current values.
func (h *PoolHeartbeat) UpdateRuntimeStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	h.MemorySysBytes = ms.Sys
	h.NumGoroutine = runtime.NumGoroutine()
}
