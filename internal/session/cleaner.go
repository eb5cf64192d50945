package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RunCleaner periodically removes sessions whose last update is older
// than the store TTL. Blocks until the context is cancelled. A TTL or
// interval of zero disables expiry.
func (s *Store) RunCleaner(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("session cleaner started",
		zap.Duration("ttl", s.ttl),
		zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpired(time.Now().UTC())
		}
	}
}

// purgeExpired deletes every session older than the TTL and returns how
// many were removed.
func (s *Store) purgeExpired(now time.Time) int {
	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	purged := 0
	for _, id := range expired {
		if err := s.Delete(id); err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.log.Warn("purge expired session", zap.String("session", id), zap.Error(err))
			}
			continue
		}
		purged++
		s.log.Info("expired session removed", zap.String("session", id))
	}
	return purged
}
