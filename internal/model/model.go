// Package model contains the records shared across the API, the worker and
// the storage layers.
package model

import (
	"time"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
)

// ConfigTemplate is a named, reusable form configuration. Names are not
// unique.
type ConfigTemplate struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Config    formconfig.FieldConfig `json:"config"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// JobType enumerates the employment types a posting can advertise.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

// Priority controls how prominently a job is listed.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityFeatured Priority = "featured"
	PriorityUrgent   Priority = "urgent"
)

// Job is a posting. ConfigID is a weak reference to a ConfigTemplate; the
// template may have been deleted since. Config, when non-empty, overrides the
// referenced template entirely.
type Job struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Location      string                 `json:"location"`
	Industry      string                 `json:"industry"`
	Description   string                 `json:"description"`
	Eligibility   string                 `json:"eligibility"`
	SalaryMin     *float64               `json:"salaryMin,omitempty"`
	SalaryMax     *float64               `json:"salaryMax,omitempty"`
	Currency      string                 `json:"currency,omitempty"`
	ExperienceMin *int                   `json:"experienceMin,omitempty"`
	ExperienceMax *int                   `json:"experienceMax,omitempty"`
	Type          JobType                `json:"type"`
	Status        JobStatus              `json:"status"`
	Priority      Priority               `json:"priority"`
	ConfigID      *string                `json:"configId"`
	Config        formconfig.FieldConfig `json:"config"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// ApplicationStatus tracks where a candidate is in the agency's pipeline.
type ApplicationStatus string

const (
	ApplicationNew       ApplicationStatus = "new"
	ApplicationContacted ApplicationStatus = "contacted"
	ApplicationHired     ApplicationStatus = "hired"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// Application is a stored candidate submission. Fields only ever holds keys
// that were required or shown for the job at submission time.
type Application struct {
	ID         string                         `json:"id"`
	JobID      string                         `json:"jobId"`
	Fields     map[formconfig.FieldKey]string `json:"fields"`
	Status     ApplicationStatus              `json:"status"`
	Notes      string                         `json:"notes"`
	ResumeText string                         `json:"resumeText,omitempty"`
	AppliedAt  time.Time                      `json:"appliedAt"`
	UpdatedAt  time.Time                      `json:"updatedAt"`
}

// ApplicationFilter narrows an application listing. Empty values match all.
type ApplicationFilter struct {
	JobID  string
	Status ApplicationStatus
}
