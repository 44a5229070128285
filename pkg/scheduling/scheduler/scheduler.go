package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/common/validation"
	"github.com/vnykmshr/fanflow/pkg/metrics"
	"github.com/vnykmshr/fanflow/pkg/scheduling/workerpool"
)

// Job is the work a scheduler runs.
type Job func(ctx context.Context) error

// Entry describes a scheduled job.
type Entry struct {
	ID       string
	Spec     string        // cron expression, empty for interval and one-time jobs
	Interval time.Duration // zero for cron and one-time jobs
	Next     time.Time
	Runs     int
	MaxRuns  int
	Created  time.Time
	LastErr  error
}

// Options tunes a repeating job.
type Options struct {
	// MaxRuns removes the job after that many completed runs. Zero means
	// unlimited.
	MaxRuns int

	// StopOnError removes the job after its first failed run.
	StopOnError bool

	// SkipIfRunning skips a due run while the previous one is still going.
	SkipIfRunning bool

	// OnError is called after each failed run.
	OnError func(id string, err error)

	// OnFinish is called once the job is removed because it reached MaxRuns
	// or failed with StopOnError.
	OnFinish func(id string)
}

// Scheduler runs jobs at fixed times, fixed intervals or cron schedules.
type Scheduler interface {
	Schedule(id string, job Job, runAt time.Time) error
	ScheduleAfter(id string, job Job, delay time.Duration) error
	ScheduleRepeating(id string, job Job, interval time.Duration, opts Options) error
	ScheduleCron(id string, expr string, job Job, opts Options) error

	Cancel(id string) bool
	CancelAll()
	List() []Entry

	// Start begins dispatching due jobs. Jobs receive a context derived
	// from ctx that is canceled by Stop.
	Start(ctx context.Context) error

	// Stop cancels running jobs, waits for them and returns a channel closed
	// once the scheduler has fully stopped.
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// Name labels metrics and log entries.
	Name string

	// Workers is the number of jobs that may run at once. Default: 4
	Workers int

	// QueueSize bounds dispatched jobs waiting for a worker. Default: 100
	QueueSize int

	// Location evaluates cron expressions. Default: time.Local
	Location *time.Location

	// TickInterval is how often due jobs are checked. Default: 50ms
	TickInterval time.Duration

	// MaxTasks bounds the number of entries. Default: 10000
	MaxTasks int

	Metrics *metrics.Registry
	Logger  *zap.Logger
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Name:         "default",
		Workers:      4,
		QueueSize:    100,
		Location:     time.Local,
		TickInterval: 50 * time.Millisecond,
		MaxTasks:     10000,
	}
}

// Parser accepts five-field expressions, an optional leading seconds field
// and descriptors such as @hourly or @every 30s.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCron reports whether expr can be scheduled.
func ValidateCron(expr string) error {
	if _, err := Parser.Parse(expr); err != nil {
		return ffErrors.NewValidationError("scheduler", "cron", expr, err.Error())
	}
	return nil
}

type entry struct {
	Entry
	job        Job
	schedule   cron.Schedule
	opts       Options
	dispatched int
	running    bool
}

type scheduler struct {
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	started bool
	halted  bool

	cancel context.CancelFunc
	pool   workerpool.Pool[struct{}]
	loopWg sync.WaitGroup
	stopCh chan struct{}
	done   chan struct{}
}

// New creates a scheduler with the default configuration.
func New() Scheduler {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a scheduler. Zero fields take their defaults.
func NewWithConfig(cfg Config) Scheduler {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = def.MaxTasks
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &scheduler{
		config:  cfg,
		logger:  logger.With(zap.String("scheduler", cfg.Name)),
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *scheduler) Schedule(id string, job Job, runAt time.Time) error {
	if runAt.IsZero() {
		return ffErrors.NewValidationError("scheduler", "runAt", runAt, "cannot be zero")
	}
	return s.add(id, job, &entry{
		Entry: Entry{ID: id, Next: runAt, MaxRuns: 1},
		opts:  Options{MaxRuns: 1},
	})
}

func (s *scheduler) ScheduleAfter(id string, job Job, delay time.Duration) error {
	return s.Schedule(id, job, time.Now().Add(delay))
}

func (s *scheduler) ScheduleRepeating(id string, job Job, interval time.Duration, opts Options) error {
	if interval <= 0 {
		return ffErrors.NewValidationError("scheduler", "interval", interval, "must be positive")
	}
	return s.add(id, job, &entry{
		Entry: Entry{ID: id, Interval: interval, Next: time.Now().Add(interval), MaxRuns: opts.MaxRuns},
		opts:  opts,
	})
}

func (s *scheduler) ScheduleCron(id string, expr string, job Job, opts Options) error {
	if err := validation.ValidateNotEmpty("scheduler", "cron", expr); err != nil {
		return err
	}
	schedule, err := Parser.Parse(expr)
	if err != nil {
		return ffErrors.NewValidationError("scheduler", "cron", expr, err.Error()).
			WithHint("use five fields, an optional seconds field, or a descriptor such as @every 30s")
	}
	return s.add(id, job, &entry{
		Entry:    Entry{ID: id, Spec: expr, Next: schedule.Next(time.Now().In(s.config.Location)), MaxRuns: opts.MaxRuns},
		schedule: schedule,
		opts:     opts,
	})
}

func (s *scheduler) add(id string, job Job, e *entry) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", id); err != nil {
		return err
	}
	if len(id) > 255 {
		return ffErrors.NewValidationError("scheduler", "id", id, "too long (max 255 characters)")
	}
	if job == nil {
		return ffErrors.NewValidationError("scheduler", "job", nil, "cannot be nil")
	}
	if e.opts.MaxRuns < 0 {
		return ffErrors.NewValidationError("scheduler", "MaxRuns", e.opts.MaxRuns, "cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return fmt.Errorf("cannot schedule %q: %w", id, ffErrors.ErrClosed)
	}
	if _, exists := s.entries[id]; exists {
		return ffErrors.NewValidationError("scheduler", "id", id, "already scheduled").
			WithHint("cancel the existing job first or use a different id")
	}
	if len(s.entries) >= s.config.MaxTasks {
		return ffErrors.NewValidationError("scheduler", "id", id,
			fmt.Sprintf("maximum number of jobs (%d) reached", s.config.MaxTasks))
	}

	e.job = job
	e.Created = time.Now()
	s.entries[id] = e

	if m := s.config.Metrics; m != nil {
		m.JobsScheduled.WithLabelValues(s.config.Name).Inc()
	}
	s.logger.Debug("job scheduled", zap.String("id", id), zap.Time("next", e.Next))
	return nil
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

func (s *scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Next.Equal(out[j].Next) {
			return out[i].ID < out[j].ID
		}
		return out[i].Next.Before(out[j].Next)
	})
	return out
}

func (s *scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return fmt.Errorf("cannot start scheduler: %w", ffErrors.ErrClosed)
	}
	if s.started {
		return fmt.Errorf("scheduler %s already running", s.config.Name)
	}

	pool, err := workerpool.NewWithConfig[struct{}](workerpool.Config{
		Name:         "scheduler-" + s.config.Name,
		WorkerCount:  s.config.Workers,
		QueueSize:    s.config.QueueSize,
		ResultBuffer: s.config.QueueSize,
		Metrics:      s.config.Metrics,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.pool = pool
	s.cancel = cancel
	s.started = true

	s.loopWg.Add(2)
	go s.drain()
	go s.run(runCtx)
	return nil
}

func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return s.done
	}
	s.halted = true
	started := s.started
	s.mu.Unlock()

	if !started {
		close(s.done)
		return s.done
	}

	close(s.stopCh)
	s.cancel()
	go func() {
		defer close(s.done)
		s.loopWg.Wait()
	}()
	return s.done
}

// drain discards pool results; bookkeeping happens inside each job.
func (s *scheduler) drain() {
	defer s.loopWg.Done()
	for range s.pool.Results() {
	}
}

func (s *scheduler) run(ctx context.Context) {
	defer s.loopWg.Done()
	defer func() { <-s.pool.Shutdown() }()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.dispatchDue(ctx, now)
		}
	}
}

func (s *scheduler) dispatchDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if e.Next.IsZero() || now.Before(e.Next) {
			continue
		}
		if e.running && e.opts.SkipIfRunning {
			e.Next = s.next(e, now)
			continue
		}

		e.dispatched++
		e.running = true
		due = append(due, e)

		if e.MaxRuns > 0 && e.dispatched >= e.MaxRuns {
			e.Next = time.Time{}
		} else {
			e.Next = s.next(e, now)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	for i, e := range due {
		e := e
		task := workerpool.TaskFunc[struct{}](func(jobCtx context.Context) (struct{}, error) {
			return struct{}{}, s.execute(jobCtx, e)
		})
		if err := s.pool.SubmitWithContext(ctx, i, task); err != nil {
			s.logger.Warn("job not dispatched", zap.String("id", e.ID), zap.Error(err))
			s.mu.Lock()
			e.running = false
			s.mu.Unlock()
		}
	}
}

func (s *scheduler) next(e *entry, now time.Time) time.Time {
	switch {
	case e.schedule != nil:
		return e.schedule.Next(now.In(s.config.Location))
	case e.Interval > 0:
		return now.Add(e.Interval)
	default:
		return time.Time{}
	}
}

func (s *scheduler) execute(ctx context.Context, e *entry) error {
	start := time.Now()
	err := runJob(ctx, e.job)

	if m := s.config.Metrics; m != nil {
		m.JobRuns.WithLabelValues(s.config.Name).Inc()
		if err != nil {
			m.JobFailures.WithLabelValues(s.config.Name).Inc()
		}
	}

	s.mu.Lock()
	e.running = false
	e.Runs++
	e.LastErr = err
	runs := e.Runs
	finished := (e.MaxRuns > 0 && e.Runs >= e.MaxRuns) || (err != nil && e.opts.StopOnError)
	if finished {
		if cur, ok := s.entries[e.ID]; ok && cur == e {
			delete(s.entries, e.ID)
		} else {
			finished = false
		}
	}
	s.mu.Unlock()

	fields := []zap.Field{zap.String("id", e.ID), zap.Int("run", runs), zap.Duration("duration", time.Since(start))}
	if err != nil {
		s.logger.Warn("job failed", append(fields, zap.Error(err))...)
		if e.opts.OnError != nil {
			e.opts.OnError(e.ID, err)
		}
	} else {
		s.logger.Debug("job completed", fields...)
	}

	if finished && e.opts.OnFinish != nil {
		e.opts.OnFinish(e.ID)
	}
	return err
}

func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}
