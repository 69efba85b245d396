// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string
	Enabled  bool
	Run      func()
}

// Scheduler evaluates cron expressions for a set of jobs and runs them.
type Scheduler struct {
	mu   sync.Mutex
	jobs []Job
	cron *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field, plus @every descriptors.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs: jobs,
		cron: cron.New(cron.WithParser(cronParser)),
	}
}

// Validate reports the first job whose schedule does not parse.
func Validate(jobs ...Job) error {
	for _, j := range jobs {
		if j.Schedule == "" {
			continue
		}
		if _, err := cronParser.Parse(j.Schedule); err != nil {
			return fmt.Errorf("job %q: invalid schedule %q: %w", j.Name, j.Schedule, err)
		}
	}
	return nil
}

// Start registers enabled jobs that have a schedule and starts the cron
// ticker. Jobs with invalid schedules are logged and skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Schedule == "" || !job.Enabled || job.Run == nil {
			continue
		}

		name := job.Name
		run := job.Run
		_, err := s.cron.AddFunc(job.Schedule, func() {
			slog.Debug("cron firing job", "name", name)
			run()
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", name, "schedule", job.Schedule, "error", err)
			continue
		}
		slog.Info("scheduled job", "name", name, "schedule", job.Schedule)
	}

	s.cron.Start()
	return nil
}

// Reload replaces the job set and restarts the ticker.
func (s *Scheduler) Reload(jobs ...Job) error {
	s.mu.Lock()
	s.cron.Stop()
	s.cron = cron.New(cron.WithParser(cronParser))
	s.jobs = jobs
	s.mu.Unlock()
	return s.Start()
}

// Stop stops the cron ticker and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	<-c.Stop().Done()
}

// Poller is polled for connection state changes.
type Poller interface {
	PollState() bool
}

// StatusPoller returns a job that polls p on the given interval, e.g.
// "1s", so clients see chatUpdated even when the SDK does not call back.
func StatusPoller(p Poller, interval string) Job {
	return Job{
		Name:     "connection-status",
		Schedule: "@every " + interval,
		Enabled:  interval != "" && interval != "0s",
		Run: func() {
			if p.PollState() {
				slog.Debug("connection state changed")
			}
		},
	}
}
