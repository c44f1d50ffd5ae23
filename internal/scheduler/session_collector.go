package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/onboard/internal/index"
	"github.com/MrSnakeDoc/onboard/internal/logger"
)

const (
	// DefaultCollectInterval is how often idle sessions are swept
	DefaultCollectInterval = time.Minute
)

// SessionCollector removes idle sessions from the in-memory index.
// Redis-backed sessions expire through key TTLs and need no collector.
type SessionCollector struct {
	index    *index.MemoryIndex
	logger   logger.Logger
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewSessionCollector creates a new collector
func NewSessionCollector(
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	ttl time.Duration,
) *SessionCollector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}

	return &SessionCollector{
		index:    idx,
		logger:   log,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (sc *SessionCollector) Start(ctx context.Context) error {
	sc.Collect()

	ticker := time.NewTicker(sc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sc.Collect()
			case <-sc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the collector
func (sc *SessionCollector) Stop() {
	close(sc.stopCh)
}

// Collect removes sessions idle for longer than the TTL and returns how many were removed
func (sc *SessionCollector) Collect() int {
	removed := sc.index.RemoveExpired(sc.now(), sc.ttl)

	if len(removed) == 0 {
		sc.logger.Debug("no idle sessions to collect")
		return 0
	}

	for _, id := range removed {
		sc.logger.Debug("collected idle session", logger.String("session", id))
	}
	sc.logger.Info("session collection completed",
		logger.Int("removed", len(removed)),
		logger.Int("remaining", sc.index.Count()),
		logger.Duration("ttl", sc.ttl))

	return len(removed)
}
