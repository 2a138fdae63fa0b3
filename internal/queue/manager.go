package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	queueKeyPrefix    = "job_queue:"
	statsEnqueuedKey  = "queue_stats:enqueued"
	statsDequeuedKey  = "queue_stats:dequeued"
)

func queueKey(p domain.Priority) string {
	return queueKeyPrefix + string(p)
}

// Manager is the Queue Manager: four FIFO priority queues held as Redis
// lists. New entries are pushed onto the list's head (LPUSH); Dequeue pops
// from the tail (RPOP), giving standard FIFO order. A delayed entry found at
// the tail is peeked, not returned: it is pushed back onto the head, which
// sends it to the back of the serving order alongside freshly enqueued work,
// without blocking the priorities behind it.
type Manager struct {
	rdb *redis.Client
}

// New constructs a Manager over an existing Redis client.
func New(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

// Enqueue appends entry to its priority's queue and returns its 1-based
// position (distance from being the next entry dequeued).
func (m *Manager) Enqueue(ctx context.Context, entry Entry) (int, error) {
	if !entry.Priority.IsValid() {
		entry.Priority = domain.PriorityNormal
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("marshal queue entry: %w", err)
	}

	if err := m.rdb.LPush(ctx, queueKey(entry.Priority), data).Err(); err != nil {
		return 0, fmt.Errorf("lpush %s: %w", queueKey(entry.Priority), err)
	}
	m.rdb.Incr(ctx, statsEnqueuedKey)

	return m.Position(ctx, entry.JobID, entry.Priority)
}

const rotateGuard = 10000 // hard upper bound on rotations per Dequeue call

// Dequeue polls priorities in rank order (urgent, high, normal, low), or a
// single priority if one is given. An entry whose scheduled_for is in the
// future is rotated to the head and the next entry in that priority is
// examined; returns nil, nil if every queue is empty or fully delayed.
func (m *Manager) Dequeue(ctx context.Context, only ...domain.Priority) (*Entry, error) {
	priorities := domain.Priorities()
	if len(only) > 0 {
		priorities = only
	}

	for _, p := range priorities {
		entry, err := m.dequeueFromPriority(ctx, p)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}
	}
	return nil, nil
}

func (m *Manager) dequeueFromPriority(ctx context.Context, p domain.Priority) (*Entry, error) {
	key := queueKey(p)

	for i := 0; i < rotateGuard; i++ {
		data, err := m.rdb.RPop(ctx, key).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("rpop %s: %w", key, err)
		}

		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal queue entry: %w", err)
		}

		if entry.Due(time.Now().UTC()) {
			m.rdb.Incr(ctx, statsDequeuedKey)
			return &entry, nil
		}

		if err := m.rdb.LPush(ctx, key, data).Err(); err != nil {
			return nil, fmt.Errorf("rotate delayed entry on %s: %w", key, err)
		}
	}
	return nil, nil
}

// Remove scans every priority queue and deletes the entry for jobID, if
// present. O(N) in queue length; acceptable since queues are bounded by
// sustained throughput, not unbounded backlog.
func (m *Manager) Remove(ctx context.Context, jobID string) error {
	for _, p := range domain.Priorities() {
		key := queueKey(p)
		items, err := m.rdb.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("lrange %s: %w", key, err)
		}
		for _, raw := range items {
			var entry Entry
			if json.Unmarshal([]byte(raw), &entry) != nil {
				continue
			}
			if entry.JobID == jobID {
				if err := m.rdb.LRem(ctx, key, 1, raw).Err(); err != nil {
					return fmt.Errorf("lrem %s: %w", key, err)
				}
			}
		}
	}
	return nil
}

// Position returns the 1-based distance of jobID from being the next entry
// dequeued in its priority queue, or -1 if absent.
func (m *Manager) Position(ctx context.Context, jobID string, p domain.Priority) (int, error) {
	key := queueKey(p)
	items, err := m.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return -1, fmt.Errorf("lrange %s: %w", key, err)
	}

	for idx, raw := range items {
		var entry Entry
		if json.Unmarshal([]byte(raw), &entry) != nil {
			continue
		}
		if entry.JobID == jobID {
			// Dequeue pops from the tail (index len-1), so the element
			// nearest the tail has position 1.
			return len(items) - idx, nil
		}
	}
	return -1, nil
}

// Stats reports current per-priority depth and cumulative counters.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{PerPriority: make(map[domain.Priority]int, len(domain.Priorities()))}

	for _, p := range domain.Priorities() {
		n, err := m.rdb.LLen(ctx, queueKey(p)).Result()
		if err != nil {
			return stats, fmt.Errorf("llen %s: %w", queueKey(p), err)
		}
		stats.PerPriority[p] = int(n)
		stats.Total += int(n)
	}

	enq, _ := m.rdb.Get(ctx, statsEnqueuedKey).Int64()
	deq, _ := m.rdb.Get(ctx, statsDequeuedKey).Int64()
	stats.Enqueued = enq
	stats.Dequeued = deq

	return stats, nil
}
