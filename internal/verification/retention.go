package verification

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRetentionWindow is how long terminal requests are kept before the
// sweep scrubs and archives them.
const DefaultRetentionWindow = 90 * 24 * time.Hour

// Sweeper periodically runs retention enforcement against the service.
type Sweeper struct {
	service  *Service
	window   time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweeper builds a sweeper. Zero window or interval fall back to the
// defaults (90 days, hourly).
func NewSweeper(service *Service, window, interval time.Duration, logger *slog.Logger) *Sweeper {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		service:  service,
		window:   window,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately, then on every tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	archived, err := s.service.EnforceRetention(ctx, s.now(), s.window)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
		}
		return
	}
	if archived > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "retention sweep archived requests", "count", archived)
	}
}
