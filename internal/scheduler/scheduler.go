// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Task is one maintenance job.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron  *cron.Cron
	spec  string
	tasks []Task
	ctx   context.Context
}

func New(spec string, tasks ...Task) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		spec:  spec,
		tasks: tasks,
		ctx:   context.Background(),
	}
}

// ValidateSpec reports whether spec is a valid five-field cron expression.
func ValidateSpec(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

// RunOnce runs every task in order. A failing task does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, task := range s.tasks {
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			log.Error().Err(err).Str("task", task.Name).Msg("maintenance task failed")
			continue
		}
		log.Debug().Str("task", task.Name).Dur("duration", time.Since(start)).Msg("maintenance task done")
	}
}

// Start runs every task once, then keeps running them on the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	_, err := s.cron.AddFunc(s.spec, func() {
		log.Info().Msg("scheduled maintenance triggered")
		s.RunOnce(s.ctx)
	})
	if err != nil {
		return err
	}

	s.RunOnce(ctx)
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
