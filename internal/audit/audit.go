// Package audit reports jobs whose template reference no longer resolves.
// Such jobs keep working with the default form; the audit makes them visible
// so an admin can re-point them.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// JobLister finds jobs with a dangling configId.
type JobLister interface {
	ListDanglingJobs(ctx context.Context) ([]model.Job, error)
}

// Finding is one job that falls back to the default form.
type Finding struct {
	JobID    string          `json:"jobId"`
	Title    string          `json:"title"`
	Status   model.JobStatus `json:"status"`
	ConfigID string          `json:"configId"`
}

// Report is the outcome of one audit run.
type Report struct {
	RanAt    time.Time `json:"ranAt"`
	Findings []Finding `json:"findings"`
}

// Scanner runs the audit.
type Scanner struct {
	jobs JobLister
	log  *slog.Logger
	now  func() time.Time
}

// NewScanner returns a Scanner.
func NewScanner(jobs JobLister, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{jobs: jobs, log: logger, now: time.Now}
}

// Run lists dangling jobs and logs one warning per job.
func (s *Scanner) Run(ctx context.Context) (Report, error) {
	jobs, err := s.jobs.ListDanglingJobs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list dangling jobs: %w", err)
	}
	report := Report{RanAt: s.now().UTC(), Findings: make([]Finding, 0, len(jobs))}
	for _, j := range jobs {
		f := Finding{JobID: j.ID, Title: j.Title, Status: j.Status, ConfigID: *j.ConfigID}
		report.Findings = append(report.Findings, f)
		s.log.Warn("job references a deleted config template",
			"jobId", f.JobID, "configId", f.ConfigID, "status", f.Status)
	}
	s.log.Info("template reference audit complete", "dangling", len(report.Findings))
	return report, nil
}

// Scheduler runs the Scanner on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	scanner *Scanner
	spec    string
}

// NewScheduler creates a Scheduler for spec, e.g. "@every 1h" or "0 3 * * *".
func NewScheduler(scanner *Scanner, spec string) *Scheduler {
	return &Scheduler{cron: cron.New(), scanner: scanner, spec: spec}
}

// Start registers the audit and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.scanner.Run(ctx); err != nil {
			s.scanner.log.Error("template reference audit failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule audit %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.scanner.log.Info("audit scheduled", "spec", s.spec)
	return nil
}

// Stop halts the scheduler and waits for a running audit to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
