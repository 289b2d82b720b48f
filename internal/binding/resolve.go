// Package binding decides which form configuration governs a job.
//
// Precedence: the job's inline config when non-empty, then the referenced
// template, then the process-wide default. A reference to a template that no
// longer exists falls through to the default without error so the candidate
// form always renders; the fallback is logged and counted so operators can
// find orphaned references.
package binding

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// TemplateGetter looks up a template by id. It returns an error wrapping
// model.ErrNotFound when the id is unknown.
type TemplateGetter interface {
	GetTemplate(ctx context.Context, id string) (*model.ConfigTemplate, error)
}

// Source records where a resolved config came from.
type Source string

const (
	SourceJob      Source = "job"
	SourceTemplate Source = "template"
	SourceDefault  Source = "default"
)

// Resolution is the effective config of a job together with its origin.
type Resolution struct {
	Config     formconfig.FieldConfig `json:"config"`
	Source     Source                 `json:"source"`
	TemplateID string                 `json:"templateId,omitempty"`
	Dangling   bool                   `json:"dangling,omitempty"`
}

var danglingFallbacks = expvar.NewInt("formconfig_dangling_template_fallbacks")

// DanglingFallbacks returns how many resolutions fell back to the default
// because the referenced template was missing.
func DanglingFallbacks() int64 { return danglingFallbacks.Value() }

// Resolver computes effective configs. It never caches: every call reads the
// template store again.
type Resolver struct {
	templates TemplateGetter
	defaults  formconfig.FieldConfig
	logger    *slog.Logger
}

// NewResolver builds a Resolver. defaults is copied and never modified.
func NewResolver(templates TemplateGetter, defaults formconfig.FieldConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.IsEmpty() {
		defaults = formconfig.DefaultFieldConfig()
	}
	return &Resolver{templates: templates, defaults: defaults.Clone(), logger: logger}
}

// Defaults returns a copy of the fallback config.
func (r *Resolver) Defaults() formconfig.FieldConfig { return r.defaults.Clone() }

// Resolve returns the effective config for job. Only infrastructure failures
// from the template store are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, job *model.Job) (Resolution, error) {
	if !job.Config.IsEmpty() {
		return Resolution{Config: job.Config.Clone(), Source: SourceJob}, nil
	}
	if job.ConfigID != nil && *job.ConfigID != "" {
		id := *job.ConfigID
		tmpl, err := r.templates.GetTemplate(ctx, id)
		switch {
		case err == nil:
			return Resolution{Config: tmpl.Config.Clone(), Source: SourceTemplate, TemplateID: id}, nil
		case errors.Is(err, model.ErrNotFound):
			danglingFallbacks.Add(1)
			r.logger.Warn("job references missing config template, using default form",
				"jobId", job.ID, "configId", id)
			return Resolution{Config: r.defaults.Clone(), Source: SourceDefault, TemplateID: id, Dangling: true}, nil
		default:
			return Resolution{}, fmt.Errorf("load config template %s: %w", id, err)
		}
	}
	return Resolution{Config: r.defaults.Clone(), Source: SourceDefault}, nil
}
