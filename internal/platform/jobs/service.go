package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const JobSessionSweep = "session_sweep"

// Func is one run of a job. The returned details are logged with the run.
type Func func(ctx context.Context) (any, error)

type schedule struct {
	name     string
	interval time.Duration
	run      Func
}

type job struct {
	Type string
	Run  Func
}

// Service runs scheduled and ad-hoc jobs on a single worker. Jobs never run
// concurrently with each other.
type Service struct {
	log   logrus.FieldLogger
	queue chan job

	mu        sync.Mutex
	schedules []schedule
	wg        sync.WaitGroup
}

func New(log logrus.FieldLogger) *Service {
	return &Service{
		log:   log.WithField("component", "jobs"),
		queue: make(chan job, 128),
	}
}

// Every registers run to be enqueued each interval once Start is called.
func (s *Service) Every(jobType string, interval time.Duration, run Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, schedule{name: jobType, interval: interval, run: run})
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	schedules := append([]schedule(nil), s.schedules...)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	for _, sc := range schedules {
		if sc.interval <= 0 {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.schedule(ctx, sc)
		}()
	}
}

// Wait blocks until the worker and schedulers exit after ctx is canceled.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run Func) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		s.log.WithField("jobType", jobType).Warn("job queue full")
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run Func) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.log.WithError(err).WithField("jobType", j.Type).Warn("job run failed")
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (details any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job %s panicked: %v", j.Type, r)
		}
		entry := s.log.WithField("jobType", j.Type).WithField("durationMs", time.Since(start).Milliseconds())
		if details != nil {
			entry = entry.WithField("details", details)
		}
		if err == nil {
			entry.Debug("job completed")
		}
	}()
	return j.Run(ctx)
}

func (s *Service) schedule(ctx context.Context, sc schedule) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sc.name, sc.run)
		}
	}
}
