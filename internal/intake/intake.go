// Package intake is the authoritative gate for candidate applications. It
// never trusts the client: every submission re-resolves the job's effective
// config and keeps only the fields that config allows.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	"github.com/dharsanguruparan/TalentDesk/internal/queue"
)

// ErrJobClosed is returned when the job exists but is not accepting
// applications.
var ErrJobClosed = errors.New("job is not accepting applications")

// RequiredFieldError names the required fields a submission left blank.
// Fields follows the fixed field order.
type RequiredFieldError struct {
	Fields []formconfig.FieldKey
}

func (e *RequiredFieldError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return "required field missing: " + strings.Join(names, ", ")
}

// Messages maps each missing field to a readable message.
func (e *RequiredFieldError) Messages() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[string(f)] = formconfig.Label(f) + " is required"
	}
	return out
}

// JobGetter loads jobs.
type JobGetter interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
}

// ApplicationCreator persists accepted applications.
type ApplicationCreator interface {
	CreateApplication(ctx context.Context, a *model.Application) error
}

// Publisher announces accepted applications to live dashboards.
type Publisher interface {
	ApplicationSubmitted(ctx context.Context, app *model.Application, job *model.Job) error
}

// Options tune a Service. Zero values disable the optional collaborators.
type Options struct {
	// StrictFormats makes the gate apply the shared format rules to every
	// retained value, not just presence checks on required fields.
	StrictFormats bool
	Formats       *formconfig.Builder
	Events        Publisher
	Tasks         queue.Enqueuer
	Logger        *slog.Logger
}

// Service validates, filters and stores submissions.
type Service struct {
	jobs     JobGetter
	apps     ApplicationCreator
	resolver *binding.Resolver
	opts     Options
}

// NewService returns a configured Service.
func NewService(jobs JobGetter, apps ApplicationCreator, resolver *binding.Resolver, opts Options) *Service {
	if opts.Formats == nil {
		opts.Formats = formconfig.NewBuilder()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{jobs: jobs, apps: apps, resolver: resolver, opts: opts}
}

// Submit runs the gate for one submission and stores the result. Nothing is
// written unless every required field is present.
func (s *Service) Submit(ctx context.Context, jobID string, values formconfig.Values) (*model.Application, error) {
	job, res, err := s.resolve(ctx, jobID, true)
	if err != nil {
		return nil, err
	}

	kept, err := s.filter(res.Config, values)
	if err != nil {
		return nil, err
	}

	app := &model.Application{
		ID:     uuid.NewString(),
		JobID:  job.ID,
		Fields: kept,
		Status: model.ApplicationNew,
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("store application: %w", err)
	}
	s.afterSubmit(ctx, app, job)
	return app, nil
}

// filter walks the known fields in order. Hidden and unset fields are
// dropped; required fields must be non-blank after trimming.
func (s *Service) filter(cfg formconfig.FieldConfig, values formconfig.Values) (map[formconfig.FieldKey]string, error) {
	kept := make(map[formconfig.FieldKey]string)
	var missing []formconfig.FieldKey
	for _, f := range formconfig.Fields {
		mode := cfg.ModeFor(f.Key, formconfig.ResolutionDefaultMode)
		if mode == formconfig.ModeHidden {
			continue
		}
		value := strings.TrimSpace(values[string(f.Key)])
		if value == "" {
			if mode == formconfig.ModeRequired {
				missing = append(missing, f.Key)
			}
			continue
		}
		kept[f.Key] = value
	}
	if len(missing) > 0 {
		return nil, &RequiredFieldError{Fields: missing}
	}
	if s.opts.StrictFormats {
		problems := make(map[string]string)
		for key, value := range kept {
			if msg := s.opts.Formats.CheckFormat(key, value); msg != "" {
				problems[string(key)] = formconfig.Label(key) + " " + msg
			}
		}
		if len(problems) > 0 {
			return nil, &model.ValidationError{Msg: "invalid application", Fields: problems}
		}
	}
	return kept, nil
}

func (s *Service) afterSubmit(ctx context.Context, app *model.Application, job *model.Job) {
	log := s.opts.Logger.With("applicationId", app.ID, "jobId", job.ID)
	if s.opts.Events != nil {
		if err := s.opts.Events.ApplicationSubmitted(ctx, app, job); err != nil {
			log.Warn("publish application.submitted failed", "err", err)
		}
	}
	if s.opts.Tasks == nil {
		return
	}
	if err := queue.EnqueueNotify(ctx, s.opts.Tasks, queue.NotifyPayload{
		ApplicationID: app.ID,
		JobID:         job.ID,
		JobTitle:      job.Title,
	}); err != nil {
		log.Warn("enqueue notification failed", "err", err)
	}
	if resume := app.Fields[formconfig.FieldResumeURL]; resume != "" {
		if err := queue.EnqueueExtract(ctx, s.opts.Tasks, queue.ExtractPayload{
			ApplicationID: app.ID,
			ResumeURL:     resume,
		}); err != nil {
			log.Warn("enqueue resume extraction failed", "err", err)
		}
	}
}
