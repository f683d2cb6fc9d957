package reflection

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs the reflection loop periodically, out-of-band from live
// turns.
type Scheduler struct {
	scheduler gocron.Scheduler
}

func NewScheduler(r *Reflector, interval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating reflection scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			r.Run(context.Background())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("registering reflection job: %w", err)
	}

	return &Scheduler{scheduler: s}, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
