package attempt

import (
	"context"
	"errors"
	"time"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
	"assessment-service/internal/worker"

	"go.uber.org/zap"
)

type SweeperConfig struct {
	Interval time.Duration
	Batch    int
	Workers  int
}

// Sweeper abandons in-progress attempts whose deadline has passed, in
// batches spread over a worker pool.
type Sweeper struct {
	engine   Engine
	attempts repository.AttemptStore
	cfg      SweeperConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewSweeper(engine Engine, attempts repository.AttemptStore, cfg SweeperConfig, log *zap.Logger) *Sweeper {
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Sweeper{engine: engine, attempts: attempts, cfg: cfg, log: log, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		s.log.Info("attempt sweeper disabled")
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("attempt sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce abandons up to one batch of expired attempts and reports how
// many it ended.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.attempts.FindExpired(ctx, s.now().UTC(), s.cfg.Batch)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, len(expired))
	for i, a := range expired {
		ids[i] = a.ID
	}
	results := worker.Run(s.cfg.Workers, ids, func(id string) error {
		_, err := s.engine.Abandon(ctx, id, models.EndReasonTimeout)
		return err
	})

	ended := 0
	for id, err := range results {
		switch {
		case err == nil:
			ended++
		case errors.Is(err, ErrAttemptNotActive):
			// Completed or abandoned between the query and the write.
		default:
			s.log.Warn("failed to abandon expired attempt", zap.String("attempt_id", id), zap.Error(err))
		}
	}
	if ended > 0 {
		s.log.Info("expired attempts abandoned", zap.Int("count", ended))
	}
	return ended, nil
}
