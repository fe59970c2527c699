package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// SessionSweeper periodically removes contact sessions that expired without
// opening a conversation.
type SessionSweeper struct {
	sessions driven.ContactSessionStore
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionSweeper creates a SessionSweeper that runs every interval.
func NewSessionSweeper(sessions driven.ContactSessionStore, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs an immediate sweep, then sweeps on the configured interval.
// Start blocks until the context is canceled.
func (s *SessionSweeper) Start(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("initial session sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("session sweep failed", "error", err)
			}
		}
	}
}

// Sweep removes expired, unused contact sessions once and returns how many
// were removed.
func (s *SessionSweeper) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()

	removed, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep contact sessions: %w", err)
	}

	if removed > 0 {
		s.logger.Info("expired contact sessions removed",
			"count", removed,
			"duration", time.Since(start),
		)
	}
	return removed, nil
}
