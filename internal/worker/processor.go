// Package worker holds the asynq task handlers. The same handlers run in the
// standalone worker binary and in the API's inline processing pool.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TalentDesk/internal/mailer"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	pdfutil "github.com/dharsanguruparan/TalentDesk/internal/pdf"
	"github.com/dharsanguruparan/TalentDesk/internal/queue"
)

// ApplicationStore is the application persistence the handlers need.
type ApplicationStore interface {
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	SetResumeText(ctx context.Context, id, text string) error
}

// JobGetter loads the job an application belongs to.
type JobGetter interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
}

// ResumeSource fetches uploaded resumes. *s3storage.Storage implements it.
type ResumeSource interface {
	KeyFromURL(raw string) (string, bool)
	DownloadResume(ctx context.Context, objectKey string, maxBytes int64) ([]byte, string, error)
}

// Options configures a Processor. A nil Resumes disables extraction and an
// empty NotifyEmail disables the agency notice.
type Options struct {
	Resumes        ResumeSource
	Mail           mailer.Sender
	NotifyEmail    string
	ResumeMaxBytes int64
	Logger         *slog.Logger
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	apps ApplicationStore
	jobs JobGetter
	opts Options
	log  *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(apps ApplicationStore, jobs JobGetter, opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Mail == nil {
		opts.Mail = mailer.LogSender{Logger: logger}
	}
	return &Processor{apps: apps, jobs: jobs, opts: opts, log: logger}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.NotifyApplicationTask, p.handleNotify)
	mux.HandleFunc(queue.ExtractResumeTask, p.handleExtract)
	return mux
}

func (p *Processor) handleNotify(ctx context.Context, task *asynq.Task) error {
	var payload queue.NotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	app, job, err := p.load(ctx, payload.ApplicationID)
	if err != nil {
		return err
	}

	if p.opts.NotifyEmail != "" {
		msg, err := mailer.NewApplicationNotice(p.opts.NotifyEmail, job, app)
		if err != nil {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		if err := p.opts.Mail.Send(ctx, msg); err != nil {
			return fmt.Errorf("send application notice: %w", err)
		}
	}

	// The candidate copy is best effort: a retry here would resend the agency
	// notice as well.
	msg, ok, err := mailer.CandidateConfirmation(job, app)
	if err != nil {
		p.log.Warn("render candidate confirmation", "applicationId", app.ID, "err", err)
		return nil
	}
	if ok {
		if err := p.opts.Mail.Send(ctx, msg); err != nil {
			p.log.Warn("send candidate confirmation", "applicationId", app.ID, "err", err)
		}
	}
	p.log.Info("application notified", "applicationId", app.ID, "jobId", job.ID)
	return nil
}

func (p *Processor) handleExtract(ctx context.Context, task *asynq.Task) error {
	var payload queue.ExtractPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	if p.opts.Resumes == nil {
		p.log.Info("resume extraction skipped, storage disabled", "applicationId", payload.ApplicationID)
		return nil
	}
	key, ok := p.opts.Resumes.KeyFromURL(payload.ResumeURL)
	if !ok {
		// Candidates may link a resume hosted elsewhere.
		p.log.Info("resume not in bucket, extraction skipped", "applicationId", payload.ApplicationID)
		return nil
	}
	data, _, err := p.opts.Resumes.DownloadResume(ctx, key, p.opts.ResumeMaxBytes)
	if err != nil {
		return fmt.Errorf("download resume for %s: %w", payload.ApplicationID, err)
	}
	text, err := pdfutil.ExtractText(data)
	if errors.Is(err, pdfutil.ErrNotPDF) {
		p.log.Info("resume is not a pdf, extraction skipped", "applicationId", payload.ApplicationID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("extract resume %s: %w: %w", key, err, asynq.SkipRetry)
	}
	if err := p.apps.SetResumeText(ctx, payload.ApplicationID, text); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("application %s: %w: %w", payload.ApplicationID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("store resume text: %w", err)
	}
	p.log.Info("resume processed", "applicationId", payload.ApplicationID, "runes", len([]rune(text)))
	return nil
}

func (p *Processor) load(ctx context.Context, applicationID string) (*model.Application, *model.Job, error) {
	app, err := p.apps.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil, fmt.Errorf("application %s: %w: %w", applicationID, err, asynq.SkipRetry)
		}
		return nil, nil, fmt.Errorf("load application: %w", err)
	}
	job, err := p.jobs.GetJob(ctx, app.JobID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil, fmt.Errorf("job %s: %w: %w", app.JobID, err, asynq.SkipRetry)
		}
		return nil, nil, fmt.Errorf("load job: %w", err)
	}
	return app, job, nil
}
