package graphstore

import (
	"context"
	"fmt"
	"time"
)

// PoolHealthStatus reports the health of the underlying connection pool.
type PoolHealthStatus struct {
	Healthy       bool
	Message       string
	LastCheckTime time.Time
}

// WatchPoolHealth runs periodic health checks until ctx is cancelled. Meant
// to run in its own goroutine alongside a long-lived Store (e.g. behind an
// MCP tool server), not during a single extraction run.
func (s *Store) WatchPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("starting pool health monitor", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("pool health monitor stopped")
			return
		case <-ticker.C:
			if err := s.HealthCheck(ctx); err != nil {
				s.logger.Warn("pool health check failed", "error", err)
			} else {
				s.logger.Debug("pool health check passed")
			}
		}
	}
}

// CheckPoolHealth performs one health check and returns a detailed status
// for monitoring or alerting.
func (s *Store) CheckPoolHealth(ctx context.Context) (*PoolHealthStatus, error) {
	start := time.Now()
	err := s.HealthCheck(ctx)
	status := &PoolHealthStatus{LastCheckTime: time.Now()}

	if err != nil {
		status.Message = fmt.Sprintf("health check failed: %v", err)
		return status, err
	}

	if checkDuration := time.Since(start); checkDuration > 5*time.Second {
		status.Message = fmt.Sprintf("health check slow: %v (threshold: 5s)", checkDuration)
		return status, fmt.Errorf("graphstore: health check timeout")
	}

	status.Healthy = true
	status.Message = "pool healthy"
	return status, nil
}
