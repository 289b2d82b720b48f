// Package storage contains the in-memory persistence layer used in dev mode
// (no DATABASE_URL) and by tests. It satisfies the same interfaces as the
// PostgreSQL repositories.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// MemoryStore keeps templates, jobs and applications in maps guarded by a
// single RWMutex. Every read returns a copy.
type MemoryStore struct {
	mu           sync.RWMutex
	templates    map[string]*model.ConfigTemplate
	jobs         map[string]*model.Job
	applications map[string]*model.Application
	now          func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates:    make(map[string]*model.ConfigTemplate),
		jobs:         make(map[string]*model.Job),
		applications: make(map[string]*model.Application),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Templates

func (m *MemoryStore) CreateTemplate(_ context.Context, t *model.ConfigTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.templates[t.ID] = copyTemplate(t)
	return nil
}

func (m *MemoryStore) UpdateTemplate(_ context.Context, t *model.ConfigTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.templates[t.ID]
	if !ok {
		return fmt.Errorf("template %s: %w", t.ID, model.ErrNotFound)
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = m.now()
	m.templates[t.ID] = copyTemplate(t)
	return nil
}

func (m *MemoryStore) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return fmt.Errorf("template %s: %w", id, model.ErrNotFound)
	}
	delete(m.templates, id)
	return nil
}

func (m *MemoryStore) GetTemplate(_ context.Context, id string) (*model.ConfigTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, model.ErrNotFound)
	}
	return copyTemplate(t), nil
}

func (m *MemoryStore) ListTemplates(_ context.Context) ([]model.ConfigTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ConfigTemplate, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, *copyTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Jobs

func (m *MemoryStore) CreateJob(_ context.Context, j *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	j.CreatedAt = now
	j.UpdatedAt = now
	m.jobs[j.ID] = copyJob(j)
	return nil
}

func (m *MemoryStore) UpdateJob(_ context.Context, j *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.jobs[j.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", j.ID, model.ErrNotFound)
	}
	j.CreatedAt = cur.CreatedAt
	j.UpdatedAt = m.now()
	m.jobs[j.ID] = copyJob(j)
	return nil
}

func (m *MemoryStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	delete(m.jobs, id)
	for appID, a := range m.applications {
		if a.JobID == id {
			delete(m.applications, appID)
		}
	}
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	return copyJob(j), nil
}

// ListJobs returns jobs in the given status (all when empty), urgent and
// featured first, then newest first.
func (m *MemoryStore) ListJobs(_ context.Context, status model.JobStatus) ([]model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if status != "" && j.Status != status {
			continue
		}
		out = append(out, *copyJob(j))
	}
	sort.Slice(out, func(i, k int) bool {
		if ri, rk := out[i].Priority.Rank(), out[k].Priority.Rank(); ri != rk {
			return ri > rk
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}

// ListDanglingJobs returns jobs whose ConfigID no longer matches a template.
func (m *MemoryStore) ListDanglingJobs(_ context.Context) ([]model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Job
	for _, j := range m.jobs {
		if j.ConfigID == nil || *j.ConfigID == "" {
			continue
		}
		if _, ok := m.templates[*j.ConfigID]; !ok {
			out = append(out, *copyJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

// Applications

func (m *MemoryStore) CreateApplication(_ context.Context, a *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[a.JobID]; !ok {
		return fmt.Errorf("job %s: %w", a.JobID, model.ErrNotFound)
	}
	now := m.now()
	a.AppliedAt = now
	a.UpdatedAt = now
	m.applications[a.ID] = copyApplication(a)
	return nil
}

func (m *MemoryStore) GetApplication(_ context.Context, id string) (*model.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
	}
	return copyApplication(a), nil
}

func (m *MemoryStore) ListApplications(_ context.Context, f model.ApplicationFilter) ([]model.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Application, 0)
	for _, a := range m.applications {
		if f.JobID != "" && a.JobID != f.JobID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, *copyApplication(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateApplication(_ context.Context, id string, status *model.ApplicationStatus, notes *string) (*model.Application, error) {
	return m.mutateApplication(id, func(a *model.Application) {
		if status != nil {
			a.Status = *status
		}
		if notes != nil {
			a.Notes = *notes
		}
	})
}

func (m *MemoryStore) SetResumeText(_ context.Context, id, text string) error {
	_, err := m.mutateApplication(id, func(a *model.Application) { a.ResumeText = text })
	return err
}

func (m *MemoryStore) mutateApplication(id string, fn func(*model.Application)) (*model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
	}
	fn(a)
	a.UpdatedAt = m.now()
	return copyApplication(a), nil
}

// ApplicationCount returns the number of stored applications.
func (m *MemoryStore) ApplicationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.applications)
}

func copyTemplate(t *model.ConfigTemplate) *model.ConfigTemplate {
	c := *t
	c.Config = t.Config.Clone()
	return &c
}

func copyJob(j *model.Job) *model.Job {
	c := *j
	c.Config = j.Config.Clone()
	if j.ConfigID != nil {
		id := *j.ConfigID
		c.ConfigID = &id
	}
	if j.SalaryMin != nil {
		v := *j.SalaryMin
		c.SalaryMin = &v
	}
	if j.SalaryMax != nil {
		v := *j.SalaryMax
		c.SalaryMax = &v
	}
	if j.ExperienceMin != nil {
		v := *j.ExperienceMin
		c.ExperienceMin = &v
	}
	if j.ExperienceMax != nil {
		v := *j.ExperienceMax
		c.ExperienceMax = &v
	}
	return &c
}

func copyApplication(a *model.Application) *model.Application {
	c := *a
	c.Fields = make(map[formconfig.FieldKey]string, len(a.Fields))
	for k, v := range a.Fields {
		c.Fields[k] = v
	}
	return &c
}
