// Package maintenance runs the background jobs of a long-lived instance:
// scheduled knowledge base refreshes, query log retention and gauge updates.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
)

// ErrUnknownJob is returned by RunNow for a name that was never added.
var ErrUnknownJob = errors.New("maintenance: unknown job")

// Job is one scheduled task.
type Job struct {
	Name    string
	Spec    string // Cron expression or descriptor such as "@daily"
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// State stores the last run of each job.
type State struct {
	LastRun    time.Time `json:"last_run"`
	LastStatus string    `json:"last_status"`
	Next       time.Time `json:"next,omitzero"`
}

// Scheduler runs jobs on cron schedules. Overlapping runs of one job are
// skipped and panics are recovered.
type Scheduler struct {
	cron    *cron.Cron
	log     *logger.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*entry
	running sync.WaitGroup
}

type entry struct {
	job Job
	id  cron.EntryID
	run sync.Mutex // held while the job runs

	mu    sync.Mutex
	state State
}

// Parser accepts standard five-field expressions and descriptors.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a stopped Scheduler.
func New(log *logger.Logger, m *metrics.Metrics) *Scheduler {
	log = log.WithModule("maintenance")
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cronLogger{log}),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
		log:     log,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*entry),
	}
}

// Add schedules job. An empty spec disables the job; an invalid spec is an error.
func (s *Scheduler) Add(job Job) error {
	spec := strings.TrimSpace(job.Spec)
	if spec == "" {
		s.log.WithField("job", job.Name).Info("Job disabled (no schedule)")
		return nil
	}
	if job.Run == nil {
		return fmt.Errorf("maintenance: job %q has no Run func", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("maintenance: job %q already added", job.Name)
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(spec, func() { s.run(e) })
	if err != nil {
		return fmt.Errorf("maintenance: job %q schedule %q: %w", job.Name, spec, err)
	}
	e.id = id
	s.jobs[job.Name] = e
	s.log.WithFields(map[string]any{"job": job.Name, "schedule": spec}).Info("Job scheduled")
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling, cancels running jobs and waits for them to return
// or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	s.cancel()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("maintenance: stop: %w", ctx.Err())
	}
}

// RunNow runs a job synchronously. It returns false when the job was
// already running and this call was skipped.
func (s *Scheduler) RunNow(name string) (bool, error) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(e), nil
}

// States returns the last run of every job.
func (s *Scheduler) States() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make(map[string]State, len(s.jobs))
	for name, e := range s.jobs {
		e.mu.Lock()
		st := e.state
		e.mu.Unlock()
		st.Next = s.cron.Entry(e.id).Next
		states[name] = st
	}
	return states
}

func (s *Scheduler) run(e *entry) bool {
	if !e.run.TryLock() {
		s.log.WithField("job", e.job.Name).Warn("Job still running, skipping")
		s.metrics.RecordJobRun(e.job.Name, "skipped")
		return false
	}
	defer e.run.Unlock()

	s.running.Add(1)
	defer s.running.Done()

	ctx := s.ctx
	if e.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := e.job.Run(ctx)
	status := "success"
	if err != nil {
		status = "error"
		s.log.WithError(err).WithField("job", e.job.Name).ErrorContext(ctx, "Job failed")
	} else {
		s.log.WithFields(map[string]any{
			"job":      e.job.Name,
			"duration": time.Since(start).String(),
		}).InfoContext(ctx, "Job complete")
	}
	e.mu.Lock()
	e.state = State{LastRun: start, LastStatus: status}
	e.mu.Unlock()
	s.metrics.RecordJobRun(e.job.Name, status)
	return true
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithError(err).Error("cron: "+msg, keysAndValues...)
}
