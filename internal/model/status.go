package model

import "fmt"

// JobStatus is the publication state of a job posting.
//
//	draft ──► published ──► closed
//	  │                       │
//	  └──────────► closed     └──► published (reopen)
type JobStatus string

const (
	JobDraft     JobStatus = "draft"
	JobPublished JobStatus = "published"
	JobClosed    JobStatus = "closed"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobDraft:     {JobPublished, JobClosed},
	JobPublished: {JobClosed},
	JobClosed:    {JobPublished},
}

// ParseJobStatus converts a raw string into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	switch st {
	case JobDraft, JobPublished, JobClosed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsJobTransitionAllowed reports whether an admin may move a job from one
// status to another.
func IsJobTransitionAllowed(from, to JobStatus) bool {
	for _, s := range jobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AcceptsApplications reports whether candidates may apply to a job in this
// status.
func (s JobStatus) AcceptsApplications() bool { return s == JobPublished }

// ParseApplicationStatus converts a raw string into an ApplicationStatus.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case ApplicationNew, ApplicationContacted, ApplicationHired, ApplicationRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// ParseJobType converts a raw string into a JobType.
func ParseJobType(s string) (JobType, error) {
	t := JobType(s)
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeFreelance:
		return t, nil
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// ParsePriority converts a raw string into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	switch p {
	case PriorityNormal, PriorityFeatured, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Rank orders priorities for listings; higher is listed first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 2
	case PriorityFeatured:
		return 1
	}
	return 0
}
