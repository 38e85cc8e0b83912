// Package scheduler maps durable tasks onto in-process timers. Recurring
// tasks ride on robfig/cron entries; one-shot tasks are checked once a minute
// against their due time. Firing hands the task id to a callback and never
// blocks the timer thread.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/metrics"
	"github.com/timeros/timeros/internal/store"
)

// Firing triggers.
const (
	TriggerCron    = "cron"
	TriggerOneshot = "oneshot"
)

// FireFunc is called each time a job fires, in its own goroutine.
type FireFunc func(ctx context.Context, taskID string)

// Job is the in-memory scheduling record for one task.
type Job struct {
	TaskID         string
	Recurring      bool
	CronExpression string    // Required for recurring jobs, 5-field
	ExecuteAt      time.Time // Required for one-shot jobs
	Paused         bool
}

// Scheduler manages job registration and firing.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	fire    FireFunc
	logger  *logger.Logger
	metrics *metrics.PrometheusMetrics

	ctx     context.Context
	cancel  context.CancelFunc
	ticker  *time.Ticker
	wg      sync.WaitGroup
	started bool

	mu       sync.RWMutex
	jobs     map[string]Job
	entryIDs map[string]cron.EntryID
}

// Config holds scheduler dependencies.
type Config struct {
	Fire    FireFunc
	Logger  *logger.Logger
	Metrics *metrics.PrometheusMetrics
}

// New creates a scheduler. Cron expressions use the standard 5-field format
// (minute granularity).
func New(cfg Config) (*Scheduler, error) {
	if cfg.Fire == nil {
		return nil, fmt.Errorf("fire callback cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Scheduler{
		cron:     cron.New(),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		fire:     cfg.Fire,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		jobs:     make(map[string]Job),
		entryIDs: make(map[string]cron.EntryID),
	}, nil
}

// Start starts the cron runner and the one-shot ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("%w: scheduler already started", ErrScheduling)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.cron.Start()
	s.oneshotTicker()
	s.logger.Info("Scheduler started")
	return nil
}

// Shutdown stops firing new jobs and waits for in-flight firings to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// AddJob registers or replaces the schedule for a task. Re-adding an existing
// task id replaces its old schedule, so updates are a plain AddJob.
func (s *Scheduler) AddJob(job Job) error {
	if job.TaskID == "" {
		return fmt.Errorf("%w: task id cannot be empty", ErrScheduling)
	}
	if job.Recurring {
		if _, err := s.parser.Parse(job.CronExpression); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidCron, job.CronExpression, err)
		}
	} else if job.ExecuteAt.IsZero() {
		return fmt.Errorf("%w: one-shot job needs an execution time", ErrScheduling)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(job.TaskID)

	if job.Recurring && !job.Paused {
		taskID := job.TaskID
		entryID, err := s.cron.AddFunc(job.CronExpression, func() {
			s.fireJob(taskID, TriggerCron)
		})
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidCron, job.CronExpression, err)
		}
		s.entryIDs[job.TaskID] = entryID
	}

	s.jobs[job.TaskID] = job
	s.updateScheduledGauge()

	s.logger.Info("Job scheduled",
		logger.Field{Key: "task_id", Value: job.TaskID},
		logger.Field{Key: "recurring", Value: job.Recurring},
		logger.Field{Key: "cron", Value: job.CronExpression})
	return nil
}

// Remove drops a task from the scheduler. Returns true when the task was
// actually registered.
func (s *Scheduler) Remove(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.jobs[taskID]
	s.removeLocked(taskID)
	delete(s.jobs, taskID)
	s.updateScheduledGauge()

	if existed {
		s.logger.Info("Job removed", logger.Field{Key: "task_id", Value: taskID})
	}
	return existed
}

// Pause keeps the job registered but stops it from firing.
func (s *Scheduler) Pause(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[taskID]
	if !ok {
		return false
	}

	s.removeLocked(taskID)
	job.Paused = true
	s.jobs[taskID] = job

	s.logger.Info("Job paused", logger.Field{Key: "task_id", Value: taskID})
	return true
}

// Resume re-arms a paused job.
func (s *Scheduler) Resume(taskID string) bool {
	s.mu.Lock()
	job, ok := s.jobs[taskID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	job.Paused = false
	if err := s.AddJob(job); err != nil {
		s.logger.Error("Failed to resume job", err,
			logger.Field{Key: "task_id", Value: taskID})
		return false
	}

	s.logger.Info("Job resumed", logger.Field{Key: "task_id", Value: taskID})
	return true
}

// Jobs returns a snapshot of the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// LoadPending rebuilds the schedule from the durable store after a restart.
// One-shot tasks whose time already passed are skipped with a warning rather
// than fired late.
func (s *Scheduler) LoadPending(ctx context.Context, repo store.TaskRepository) error {
	tasks, err := repo.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to load pending tasks: %v", ErrScheduling, err)
	}

	now := time.Now().UTC()
	loaded, skipped := 0, 0

	for _, task := range tasks {
		if task.IsRecurring {
			if task.CronExpression == nil || *task.CronExpression == "" {
				s.logger.Warn("Recurring task has no cron expression, skipping",
					logger.Field{Key: "task_id", Value: task.ID})
				skipped++
				continue
			}
			if err := s.AddJob(Job{
				TaskID:         task.ID,
				Recurring:      true,
				CronExpression: *task.CronExpression,
			}); err != nil {
				s.logger.Error("Failed to schedule recurring task", err,
					logger.Field{Key: "task_id", Value: task.ID})
				skipped++
			} else {
				loaded++
			}
			continue
		}

		if task.Schedule.Before(now) {
			s.logger.Warn("One-shot task is overdue, skipping",
				logger.Field{Key: "task_id", Value: task.ID},
				logger.Field{Key: "scheduled_for", Value: task.Schedule.Format(time.RFC3339)})
			skipped++
			continue
		}

		if err := s.AddJob(Job{
			TaskID:    task.ID,
			ExecuteAt: task.Schedule,
		}); err != nil {
			s.logger.Error("Failed to schedule one-shot task", err,
				logger.Field{Key: "task_id", Value: task.ID})
			skipped++
		} else {
			loaded++
		}
	}

	s.logger.Info("Schedule rebuilt from store",
		logger.Field{Key: "loaded", Value: loaded},
		logger.Field{Key: "skipped", Value: skipped})
	return nil
}

// removeLocked drops the cron entry for a task. Caller holds s.mu.
func (s *Scheduler) removeLocked(taskID string) {
	if entryID, ok := s.entryIDs[taskID]; ok {
		s.cron.Remove(entryID)
		delete(s.entryIDs, taskID)
	}
}

func (s *Scheduler) updateScheduledGauge() {
	if s.metrics != nil {
		s.metrics.SetScheduledCount(len(s.jobs))
	}
}

// fireJob invokes the callback in its own goroutine with panic recovery, so a
// slow or crashing run never stalls the timer thread.
func (s *Scheduler) fireJob(taskID, trigger string) {
	s.mu.RLock()
	job, ok := s.jobs[taskID]
	ctx := s.ctx
	started := s.started
	s.mu.RUnlock()

	if !started || !ok || job.Paused {
		return
	}

	if s.metrics != nil {
		s.metrics.RecordFiring(trigger)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Job firing panic recovered", fmt.Errorf("panic: %v", r),
					logger.Field{Key: "task_id", Value: taskID})
			}
		}()

		s.logger.Info("Job fired",
			logger.Field{Key: "task_id", Value: taskID},
			logger.Field{Key: "trigger", Value: trigger})
		s.fire(ctx, taskID)
	}()
}

// oneshotTicker checks for due one-shot jobs every minute.
func (s *Scheduler) oneshotTicker() {
	s.ticker = time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-s.ticker.C:
				s.checkOneshots(time.Now())
			}
		}
	}()
}

// checkOneshots fires every due one-shot job and drops it from the registry,
// so a one-shot fires at most once per process.
func (s *Scheduler) checkOneshots(now time.Time) {
	s.mu.Lock()
	var due []string
	for taskID, job := range s.jobs {
		if job.Recurring || job.Paused {
			continue
		}
		if !job.ExecuteAt.After(now) {
			due = append(due, taskID)
			delete(s.jobs, taskID)
		}
	}
	s.updateScheduledGauge()
	s.mu.Unlock()

	for _, taskID := range due {
		s.fireOneshot(taskID)
	}
}

// fireOneshot mirrors fireJob but skips the registry check, since the job was
// already removed while holding the lock.
func (s *Scheduler) fireOneshot(taskID string) {
	s.mu.RLock()
	ctx := s.ctx
	started := s.started
	s.mu.RUnlock()
	if !started {
		return
	}

	if s.metrics != nil {
		s.metrics.RecordFiring(TriggerOneshot)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Job firing panic recovered", fmt.Errorf("panic: %v", r),
					logger.Field{Key: "task_id", Value: taskID})
			}
		}()

		s.logger.Info("Job fired",
			logger.Field{Key: "task_id", Value: taskID},
			logger.Field{Key: "trigger", Value: TriggerOneshot})
		s.fire(ctx, taskID)
	}()
}
