// Package registry owns the named, reusable form configuration templates.
// Deleting a template never touches the jobs that reference it.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// TemplateStore persists templates. Both the in-memory store and the
// PostgreSQL repository implement it.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *model.ConfigTemplate) error
	UpdateTemplate(ctx context.Context, t *model.ConfigTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, id string) (*model.ConfigTemplate, error)
	ListTemplates(ctx context.Context) ([]model.ConfigTemplate, error)
}

// Service validates and applies template mutations.
type Service struct {
	store TemplateStore
}

// NewService returns a configured Service.
func NewService(store TemplateStore) *Service {
	return &Service{store: store}
}

// Create stores a new template under a generated id.
func (s *Service) Create(ctx context.Context, name string, cfg formconfig.FieldConfig) (*model.ConfigTemplate, error) {
	t, err := newTemplate(uuid.NewString(), name, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

// Update replaces both name and config of an existing template.
func (s *Service) Update(ctx context.Context, id, name string, cfg formconfig.FieldConfig) (*model.ConfigTemplate, error) {
	t, err := newTemplate(id, name, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return t, nil
}

// Delete removes a template whether or not jobs still point at it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// Get returns a single template.
func (s *Service) Get(ctx context.Context, id string) (*model.ConfigTemplate, error) {
	return s.store.GetTemplate(ctx, id)
}

// List returns every template, most recently updated first.
func (s *Service) List(ctx context.Context) ([]model.ConfigTemplate, error) {
	return s.store.ListTemplates(ctx)
}

func newTemplate(id, name string, cfg formconfig.FieldConfig) (*model.ConfigTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.ValidationError{Msg: "template name is required"}
	}
	if problems := cfg.Validate(); problems != nil {
		return nil, &model.ValidationError{Msg: "invalid field config", Fields: problems}
	}
	if cfg == nil {
		cfg = formconfig.FieldConfig{}
	}
	return &model.ConfigTemplate{ID: id, Name: name, Config: cfg.Clone()}, nil
}
