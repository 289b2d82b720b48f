// Package jobs implements the admin side of job postings: create, edit,
// delete, status transitions and the public listing.
package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// Store persists jobs.
type Store interface {
	CreateJob(ctx context.Context, j *model.Job) error
	UpdateJob(ctx context.Context, j *model.Job) error
	DeleteJob(ctx context.Context, id string) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, status model.JobStatus) ([]model.Job, error)
}

// Input is the editable part of a job as sent by the admin dashboard.
type Input struct {
	Title         string                 `json:"title"`
	Location      string                 `json:"location"`
	Industry      string                 `json:"industry"`
	Description   string                 `json:"description"`
	Eligibility   string                 `json:"eligibility"`
	SalaryMin     *float64               `json:"salaryMin"`
	SalaryMax     *float64               `json:"salaryMax"`
	Currency      string                 `json:"currency"`
	ExperienceMin *int                   `json:"experienceMin"`
	ExperienceMax *int                   `json:"experienceMax"`
	Type          string                 `json:"type"`
	Priority      string                 `json:"priority"`
	ConfigID      *string                `json:"configId"`
	Config        formconfig.FieldConfig `json:"config"`
}

// Service holds job business rules. It does not check that ConfigID points
// at an existing template; resolution handles dangling references.
type Service struct {
	store Store
}

// NewService returns a configured Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create stores a new job in draft status.
func (s *Service) Create(ctx context.Context, in Input) (*model.Job, error) {
	job := &model.Job{ID: uuid.NewString(), Status: model.JobDraft}
	if err := apply(job, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Update replaces the editable fields of a job. Status is left unchanged.
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(job, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return job, nil
}

// SetStatus moves a job along the publication lifecycle.
func (s *Service) SetStatus(ctx context.Context, id string, to model.JobStatus) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.IsJobTransitionAllowed(job.Status, to) {
		return nil, &model.ValidationError{Msg: fmt.Sprintf("cannot move job from %s to %s", job.Status, to)}
	}
	job.Status = to
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	return job, nil
}

// Delete removes a job and its applications.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteJob(ctx, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.store.GetJob(ctx, id)
}

// List returns jobs in the given status, or all jobs when status is empty.
func (s *Service) List(ctx context.Context, status model.JobStatus) ([]model.Job, error) {
	return s.store.ListJobs(ctx, status)
}

// GetPublished returns a job only if candidates can currently see it.
func (s *Service) GetPublished(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobPublished {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.Status, model.ErrNotFound)
	}
	return job, nil
}

// ListPublished returns the public job board: urgent and featured jobs
// first, then newest first.
func (s *Service) ListPublished(ctx context.Context) ([]model.Job, error) {
	return s.store.ListJobs(ctx, model.JobPublished)
}

func apply(job *model.Job, in Input) error {
	problems := make(map[string]string)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		problems["title"] = "title is required"
	}
	jobType := model.JobTypeFullTime
	if in.Type != "" {
		t, err := model.ParseJobType(in.Type)
		if err != nil {
			problems["type"] = err.Error()
		}
		jobType = t
	}
	priority := model.PriorityNormal
	if in.Priority != "" {
		p, err := model.ParsePriority(in.Priority)
		if err != nil {
			problems["priority"] = err.Error()
		}
		priority = p
	}
	if in.SalaryMin != nil && *in.SalaryMin < 0 {
		problems["salaryMin"] = "must not be negative"
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		problems["salaryMax"] = "must be at least salaryMin"
	}
	if in.ExperienceMin != nil && *in.ExperienceMin < 0 {
		problems["experienceMin"] = "must not be negative"
	}
	if in.ExperienceMin != nil && in.ExperienceMax != nil && *in.ExperienceMin > *in.ExperienceMax {
		problems["experienceMax"] = "must be at least experienceMin"
	}
	for k, v := range in.Config.Validate() {
		problems["config."+k] = v
	}
	if len(problems) > 0 {
		return &model.ValidationError{Msg: "invalid job", Fields: problems}
	}

	var configID *string
	if in.ConfigID != nil && strings.TrimSpace(*in.ConfigID) != "" {
		id := strings.TrimSpace(*in.ConfigID)
		configID = &id
	}
	cfg := in.Config.Clone()
	if cfg == nil {
		cfg = formconfig.FieldConfig{}
	}

	job.Title = title
	job.Location = strings.TrimSpace(in.Location)
	job.Industry = strings.TrimSpace(in.Industry)
	job.Description = in.Description
	job.Eligibility = in.Eligibility
	job.SalaryMin = in.SalaryMin
	job.SalaryMax = in.SalaryMax
	job.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	job.ExperienceMin = in.ExperienceMin
	job.ExperienceMax = in.ExperienceMax
	job.Type = jobType
	job.Priority = priority
	job.ConfigID = configID
	job.Config = cfg
	return nil
}
