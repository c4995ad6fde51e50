// Package maintenance runs the periodic housekeeping that keeps memory and disk bounded
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// TaskFunc is the function signature for scheduled tasks
type TaskFunc func(ctx context.Context) error

// Task is a named piece of housekeeping run every Interval
type Task struct {
	Name       string
	Interval   time.Duration
	Func       TaskFunc
	RunOnStart bool
}

// TaskInfo describes a registered task
type TaskInfo struct {
	Name    string     `json:"name"`
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
	LastErr string     `json:"last_error,omitempty"`
}

type taskEntry struct {
	task    Task
	job     gocron.Job
	lastRun *time.Time
	lastErr error
	running bool
}

// Scheduler drives the registered tasks on a gocron scheduler
type Scheduler struct {
	gocron gocron.Scheduler
	logger *slog.Logger
	tasks  map[string]*taskEntry
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler with no tasks
func New() (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: gs,
		logger: slog.Default(),
		tasks:  make(map[string]*taskEntry),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Register adds a task. Overlapping runs of the same task are skipped.
func (s *Scheduler) Register(task Task) error {
	if task.Interval <= 0 {
		return fmt.Errorf("task %q needs a positive interval", task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.Name]; exists {
		return fmt.Errorf("task %q already registered", task.Name)
	}

	options := []gocron.JobOption{
		gocron.WithName(task.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if task.RunOnStart {
		options = append(options, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := s.gocron.NewJob(
		gocron.DurationJob(task.Interval),
		gocron.NewTask(func() { s.execute(task.Name) }),
		options...,
	)
	if err != nil {
		return fmt.Errorf("failed to create job for task %q: %w", task.Name, err)
	}

	s.tasks[task.Name] = &taskEntry{task: task, job: job}
	s.logger.Debug("Registered maintenance task", "task", task.Name, "interval", task.Interval)
	return nil
}

// Start begins running the registered tasks
func (s *Scheduler) Start() {
	s.logger.Info("Starting maintenance scheduler", "tasks", len(s.tasks))
	s.gocron.Start()
}

// Stop cancels running tasks and waits for the scheduler to shut down
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping maintenance scheduler")
	s.cancel()
	if err := s.gocron.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down maintenance scheduler: %w", err)
	}
	return nil
}

// runNow executes a task synchronously
func (s *Scheduler) runNow(name string) error {
	s.mu.Lock()
	_, exists := s.tasks[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("task %q not found", name)
	}
	return s.execute(name)
}

// Tasks lists the registered tasks by name
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		info := TaskInfo{Name: entry.task.Name, LastRun: entry.lastRun}
		if entry.lastErr != nil {
			info.LastErr = entry.lastErr.Error()
		}
		if next, err := entry.job.NextRun(); err == nil && !next.IsZero() {
			info.NextRun = &next
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) execute(name string) error {
	s.mu.Lock()
	entry, exists := s.tasks[name]
	if !exists || entry.running {
		s.mu.Unlock()
		return nil
	}
	entry.running = true
	s.mu.Unlock()

	start := time.Now()
	err := entry.task.Func(s.ctx)

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &start
	entry.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Maintenance task failed", "task", name, "duration", time.Since(start), "error", err)
		return err
	}
	s.logger.Debug("Maintenance task completed", "task", name, "duration", time.Since(start))
	return nil
}
