package binding_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	"github.com/dharsanguruparan/TalentDesk/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func seedTemplate(t *testing.T, store *storage.MemoryStore, id string, cfg formconfig.FieldConfig) {
	t.Helper()
	if err := store.CreateTemplate(context.Background(), &model.ConfigTemplate{ID: id, Name: "tmpl " + id, Config: cfg}); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}
}

func TestResolve_DefaultWhenNothingSet(t *testing.T) {
	r := binding.NewResolver(storage.NewMemoryStore(), nil, quietLogger())

	res, err := r.Resolve(context.Background(), &model.Job{ID: "j1", Config: formconfig.FieldConfig{}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Source != binding.SourceDefault {
		t.Errorf("Source = %q, want default", res.Source)
	}
	if !res.Config.Equal(formconfig.DefaultFieldConfig()) {
		t.Errorf("Config = %v, want built-in default", res.Config)
	}
	if res.Dangling {
		t.Error("Dangling = true for a job without a reference")
	}
}

func TestResolve_InlineConfigWinsOverTemplate(t *testing.T) {
	store := storage.NewMemoryStore()
	seedTemplate(t, store, "t1", formconfig.FieldConfig{formconfig.FieldPhone: formconfig.ModeRequired})
	r := binding.NewResolver(store, nil, quietLogger())

	inline := formconfig.FieldConfig{formconfig.FieldEmail: formconfig.ModeRequired}
	res, err := r.Resolve(context.Background(), &model.Job{ID: "j1", Config: inline, ConfigID: strPtr("t1")})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Source != binding.SourceJob {
		t.Errorf("Source = %q, want job", res.Source)
	}
	if !res.Config.Equal(inline) {
		t.Errorf("Config = %v, want %v", res.Config, inline)
	}
}

func TestResolve_TemplateWhenNoInline(t *testing.T) {
	store := storage.NewMemoryStore()
	tmpl := formconfig.FieldConfig{formconfig.FieldPhone: formconfig.ModeRequired, formconfig.FieldSkills: formconfig.ModeShown}
	seedTemplate(t, store, "t1", tmpl)
	r := binding.NewResolver(store, nil, quietLogger())

	res, err := r.Resolve(context.Background(), &model.Job{ID: "j1", ConfigID: strPtr("t1")})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Source != binding.SourceTemplate || res.TemplateID != "t1" {
		t.Errorf("Resolution = %+v, want template t1", res)
	}
	if !res.Config.Equal(tmpl) {
		t.Errorf("Config = %v, want %v", res.Config, tmpl)
	}
}

func TestResolve_DanglingReferenceFallsBack(t *testing.T) {
	store := storage.NewMemoryStore()
	seedTemplate(t, store, "t1", formconfig.FieldConfig{formconfig.FieldPhone: formconfig.ModeRequired})
	if err := store.DeleteTemplate(context.Background(), "t1"); err != nil {
		t.Fatalf("DeleteTemplate() error = %v", err)
	}
	r := binding.NewResolver(store, nil, quietLogger())
	before := binding.DanglingFallbacks()

	res, err := r.Resolve(context.Background(), &model.Job{ID: "j1", Config: formconfig.FieldConfig{}, ConfigID: strPtr("t1")})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want fail-open", err)
	}
	if !res.Config.Equal(formconfig.DefaultFieldConfig()) {
		t.Errorf("Config = %v, want default", res.Config)
	}
	if !res.Dangling || res.Source != binding.SourceDefault {
		t.Errorf("Resolution = %+v, want dangling default", res)
	}
	if got := binding.DanglingFallbacks() - before; got != 1 {
		t.Errorf("dangling counter advanced by %d, want 1", got)
	}
}

func TestResolve_CustomDefaults(t *testing.T) {
	defaults := formconfig.FieldConfig{formconfig.FieldEmail: formconfig.ModeRequired}
	r := binding.NewResolver(storage.NewMemoryStore(), defaults, quietLogger())

	res, err := r.Resolve(context.Background(), &model.Job{ID: "j1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Config.Equal(defaults) {
		t.Errorf("Config = %v, want %v", res.Config, defaults)
	}

	defaults[formconfig.FieldPhone] = formconfig.ModeRequired
	if r.Defaults().Equal(defaults) {
		t.Error("resolver defaults changed after caller mutated its map")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	seedTemplate(t, store, "t1", formconfig.FieldConfig{formconfig.FieldPhone: formconfig.ModeRequired})
	r := binding.NewResolver(store, nil, quietLogger())
	jobs := []*model.Job{
		{ID: "inline", Config: formconfig.FieldConfig{formconfig.FieldEmail: formconfig.ModeShown}},
		{ID: "template", ConfigID: strPtr("t1")},
		{ID: "default"},
		{ID: "dangling", ConfigID: strPtr("gone")},
	}
	for _, job := range jobs {
		t.Run(job.ID, func(t *testing.T) {
			first, err := r.Resolve(context.Background(), job)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			second, err := r.Resolve(context.Background(), job)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !first.Config.Equal(second.Config) || first.Source != second.Source || first.TemplateID != second.TemplateID {
				t.Errorf("Resolve() not stable: %+v vs %+v", first, second)
			}
		})
	}
}

func TestResolve_ResultIsDetachedFromJob(t *testing.T) {
	r := binding.NewResolver(storage.NewMemoryStore(), nil, quietLogger())
	job := &model.Job{ID: "j1", Config: formconfig.FieldConfig{formconfig.FieldEmail: formconfig.ModeRequired}}

	res, err := r.Resolve(context.Background(), job)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	res.Config[formconfig.FieldEmail] = formconfig.ModeHidden
	if job.Config[formconfig.FieldEmail] != formconfig.ModeRequired {
		t.Error("mutating the resolution changed the job")
	}
}

type brokenTemplates struct{}

func (brokenTemplates) GetTemplate(context.Context, string) (*model.ConfigTemplate, error) {
	return nil, errors.New("connection refused")
}

func TestResolve_InfraErrorPropagates(t *testing.T) {
	r := binding.NewResolver(brokenTemplates{}, nil, quietLogger())
	_, err := r.Resolve(context.Background(), &model.Job{ID: "j1", ConfigID: strPtr("t1")})
	if err == nil {
		t.Fatal("expected infra error to propagate")
	}
	if errors.Is(err, model.ErrNotFound) {
		t.Errorf("infra error must not look like not-found: %v", err)
	}
}
