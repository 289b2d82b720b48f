package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	"github.com/dharsanguruparan/TalentDesk/internal/registry"
	"github.com/dharsanguruparan/TalentDesk/internal/storage"
)

func TestService_CreateAndGet(t *testing.T) {
	svc := registry.NewService(storage.NewMemoryStore())
	ctx := context.Background()

	cfg := formconfig.FieldConfig{formconfig.FieldEmail: formconfig.ModeRequired}
	created, err := svc.Create(ctx, "  Engineering  ", cfg)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create() returned empty id")
	}
	if created.Name != "Engineering" {
		t.Errorf("Name = %q, want trimmed", created.Name)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Config.Equal(cfg) {
		t.Errorf("Config = %v, want %v", got.Config, cfg)
	}
}

func TestService_DuplicateNamesAllowed(t *testing.T) {
	svc := registry.NewService(storage.NewMemoryStore())
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, "Sales", formconfig.FieldConfig{}); err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len(List()) = %d, want 2", len(list))
	}
}

func TestService_CreateRejectsInvalidInput(t *testing.T) {
	svc := registry.NewService(storage.NewMemoryStore())
	tests := []struct {
		name    string
		tmpl    string
		cfg     formconfig.FieldConfig
		wantKey string
	}{
		{"blank name", "   ", formconfig.FieldConfig{}, ""},
		{"unknown field", "x", formconfig.FieldConfig{"shoeSize": formconfig.ModeShown}, "shoeSize"},
		{"bad mode", "x", formconfig.FieldConfig{formconfig.FieldEmail: "optional"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.tmpl, tt.cfg)
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Create() error = %v, want ValidationError", err)
			}
			if tt.wantKey != "" {
				if _, ok := ve.Fields[tt.wantKey]; !ok {
					t.Errorf("Fields = %v, want entry for %s", ve.Fields, tt.wantKey)
				}
			}
		})
	}
}

func TestService_UpdateReplacesWholesale(t *testing.T) {
	svc := registry.NewService(storage.NewMemoryStore())
	ctx := context.Background()
	created, err := svc.Create(ctx, "Old", formconfig.FieldConfig{
		formconfig.FieldEmail: formconfig.ModeRequired,
		formconfig.FieldPhone: formconfig.ModeShown,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	replacement := formconfig.FieldConfig{formconfig.FieldSkills: formconfig.ModeRequired}
	if _, err := svc.Update(ctx, created.ID, "New", replacement); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "New" || !got.Config.Equal(replacement) {
		t.Errorf("Get() = %+v, want name New and config %v", got, replacement)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed on update")
	}
}

func TestService_UpdateMissingIsNotFound(t *testing.T) {
	svc := registry.NewService(storage.NewMemoryStore())
	_, err := svc.Update(context.Background(), "missing", "x", formconfig.FieldConfig{})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestService_DeleteLeavesReferencingJobsIntact(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := registry.NewService(store)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "Ops", formconfig.FieldConfig{formconfig.FieldEmail: formconfig.ModeRequired})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	id := tmpl.ID
	if err := store.CreateJob(ctx, &model.Job{ID: "job-1", Title: "SRE", Status: model.JobPublished, ConfigID: &id}); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	if err := svc.Delete(ctx, tmpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	job, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.ConfigID == nil || *job.ConfigID != tmpl.ID {
		t.Errorf("job reference changed: %v", job.ConfigID)
	}
	if _, err := svc.Get(ctx, tmpl.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestService_DeleteMissingIsNotFound(t *testing.T) {
	svc := registry.NewService(storage.NewMemoryStore())
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}
