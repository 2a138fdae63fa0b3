package domain

import (
	"encoding/json"
	"time"
)

// JobMetricSample is a single point-in-time resource/throughput reading for a
// running Job, retained in the Ephemeral Store for dashboard consumption.
type JobMetricSample struct {
	JobID             string    `json:"job_id"`
	Timestamp         time.Time `json:"timestamp"`
	CPUPercent        float64   `json:"cpu_percent"`
	MemoryMB          float64   `json:"memory_mb"`
	NetworkIOBytes    int64     `json:"network_io_bytes"`
	DiskIOBytes       int64     `json:"disk_io_bytes"`
	ItemsPerSecond    float64   `json:"items_per_second"`
	QueueSize         int       `json:"queue_size"`
	ActiveConnections int       `json:"active_connections"`
	CustomMetrics     json.RawMessage `json:"custom_metrics,omitempty"`
}
