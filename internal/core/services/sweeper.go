package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/appconnect/internal/core/ports/driven"
)

// DefaultSweepInterval is how often expired temporary secrets are removed
const DefaultSweepInterval = 10 * time.Minute

// SecretSweeper periodically removes expired temporary secrets.
// Reads never return expired secrets, so sweeping only reclaims space.
type SecretSweeper struct {
	cache  driven.ExpiredSecretSweeper
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
}

// SecretSweeperConfig holds configuration for the sweeper.
type SecretSweeperConfig struct {
	Cache    driven.ExpiredSecretSweeper
	Logger   *slog.Logger
	Interval time.Duration // default: DefaultSweepInterval
}

// NewSecretSweeper creates a new sweeper.
func NewSecretSweeper(cfg SecretSweeperConfig) *SecretSweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &SecretSweeper{
		cache:    cfg.Cache,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the sweep loop. It runs until Stop is called or ctx is cancelled.
func (s *SecretSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	s.logger.Info("secret sweeper starting", "interval", s.interval)
	go s.run(ctx)
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (s *SecretSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("secret sweeper stopped")
}

func (s *SecretSweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Failures are logged and retried on the next tick.
func (s *SecretSweeper) Sweep(ctx context.Context) {
	removed, err := s.cache.Cleanup(ctx)
	if err != nil {
		s.logger.Error("failed to sweep expired secrets", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("swept expired secrets", "count", removed)
	}
}
