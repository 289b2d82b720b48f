package intake

import (
	"context"
	"fmt"

	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// FormField is one input the candidate form renders.
type FormField struct {
	Key   formconfig.FieldKey `json:"key"`
	Label string              `json:"label"`
	Mode  formconfig.Mode     `json:"mode"`
}

// Form describes the application form of a job as the candidate sees it.
type Form struct {
	JobID  string         `json:"jobId"`
	Source binding.Source `json:"source"`
	Fields []FormField    `json:"fields"`
}

// Form returns the fields the candidate form must render, in display order.
// Hidden and unset fields are left out, matching what Submit will keep.
func (s *Service) Form(ctx context.Context, jobID string) (*Form, error) {
	job, res, err := s.resolve(ctx, jobID, true)
	if err != nil {
		return nil, err
	}
	return buildForm(job, res), nil
}

// DraftForm is Form for a job in any status, so admins can review the form
// before publishing.
func (s *Service) DraftForm(ctx context.Context, jobID string) (*Form, error) {
	job, res, err := s.resolve(ctx, jobID, false)
	if err != nil {
		return nil, err
	}
	return buildForm(job, res), nil
}

func buildForm(job *model.Job, res binding.Resolution) *Form {
	form := &Form{JobID: job.ID, Source: res.Source, Fields: make([]FormField, 0, len(formconfig.Fields))}
	for _, f := range formconfig.Fields {
		mode := res.Config.ModeFor(f.Key, formconfig.ResolutionDefaultMode)
		if mode == formconfig.ModeHidden {
			continue
		}
		form.Fields = append(form.Fields, FormField{Key: f.Key, Label: f.Label, Mode: mode})
	}
	return form
}

// Preview runs the full client-side schema for a job against values without
// storing anything. It reports format problems that Submit may accept.
func (s *Service) Preview(ctx context.Context, jobID string, values formconfig.Values) (formconfig.Result, error) {
	return s.preview(ctx, jobID, values, true)
}

// DraftPreview is Preview for a job in any status.
func (s *Service) DraftPreview(ctx context.Context, jobID string, values formconfig.Values) (formconfig.Result, error) {
	return s.preview(ctx, jobID, values, false)
}

func (s *Service) preview(ctx context.Context, jobID string, values formconfig.Values, open bool) (formconfig.Result, error) {
	_, res, err := s.resolve(ctx, jobID, open)
	if err != nil {
		return formconfig.Result{}, err
	}
	return s.opts.Formats.Build(res.Config).Validate(values), nil
}

// resolve loads the job and its effective config. With open set, jobs that
// are not published fail with ErrJobClosed.
func (s *Service) resolve(ctx context.Context, jobID string, open bool) (*model.Job, binding.Resolution, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, binding.Resolution{}, err
	}
	if open && !job.Status.AcceptsApplications() {
		return nil, binding.Resolution{}, fmt.Errorf("job %s is %s: %w", job.ID, job.Status, ErrJobClosed)
	}
	res, err := s.resolver.Resolve(ctx, job)
	if err != nil {
		return nil, binding.Resolution{}, err
	}
	return job, res, nil
}
