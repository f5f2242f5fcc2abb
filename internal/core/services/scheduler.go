package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driving"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// DefaultUpdateInterval is how often scheduled delta updates run.
const DefaultUpdateInterval = 24 * time.Hour

// UpdateRound is the outcome of one scheduled update-all.
type UpdateRound struct {
	StartedAt time.Time
	EndedAt   time.Time
	Results   []*domain.PipelineResult
	Err       error
}

// Scheduler runs delta updates of every loaded source at a fixed interval.
// Rounds never overlap: the next one is scheduled from the end of the last.
type Scheduler struct {
	pipeline driving.PipelineService
	interval time.Duration
	now      func() time.Time

	// OnRound is called after each round (optional).
	OnRound func(UpdateRound)

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. A non-positive interval uses the default.
func NewScheduler(pipeline driving.PipelineService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		now:      time.Now,
	}
}

// ErrSchedulerRunning is returned when Start is called twice.
var ErrSchedulerRunning = errors.New("scheduler already running")

// Start runs a round immediately, then one every interval, until ctx is
// cancelled. It blocks and returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		s.round(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Info("scheduler: next update at %s", s.now().Add(s.interval).Format(time.RFC3339))
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) round(ctx context.Context) {
	r := UpdateRound{StartedAt: s.now()}
	r.Results, r.Err = s.pipeline.UpdateAll(ctx)
	r.EndedAt = s.now()

	if r.Err != nil {
		logger.Warn("scheduler: update round finished with errors: %v", r.Err)
	} else {
		logger.Info("scheduler: updated %d sources in %s", len(r.Results), r.EndedAt.Sub(r.StartedAt))
	}
	if s.OnRound != nil {
		s.OnRound(r)
	}
}
