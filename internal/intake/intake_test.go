package intake_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/intake"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	"github.com/dharsanguruparan/TalentDesk/internal/storage"
)

type fixture struct {
	store *storage.MemoryStore
	svc   *intake.Service
	tasks *recordingQueue
	event *recordingPublisher
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()
	f := &fixture{store: store, tasks: &recordingQueue{}, event: &recordingPublisher{}}
	f.svc = intake.NewService(store, store, binding.NewResolver(store, nil, logger), intake.Options{
		StrictFormats: strict,
		Events:        f.event,
		Tasks:         f.tasks,
		Logger:        logger,
	})
	return f
}

func (f *fixture) job(t *testing.T, cfg formconfig.FieldConfig, configID *string) *model.Job {
	t.Helper()
	job := &model.Job{
		ID:       uuid.NewString(),
		Title:    "Account Manager",
		Status:   model.JobPublished,
		Priority: model.PriorityNormal,
		Config:   cfg,
		ConfigID: configID,
	}
	if err := f.store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	return job
}

type recordingQueue struct {
	mu    sync.Mutex
	types []string
}

func (q *recordingQueue) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.types = append(q.types, task.Type())
	return nil
}

type recordingPublisher struct {
	ids []string
	err error
}

func (p *recordingPublisher) ApplicationSubmitted(_ context.Context, app *model.Application, _ *model.Job) error {
	p.ids = append(p.ids, app.ID)
	return p.err
}

var scenarioConfig = formconfig.FieldConfig{
	formconfig.FieldFullName:  formconfig.ModeRequired,
	formconfig.FieldEmail:     formconfig.ModeRequired,
	formconfig.FieldResumeURL: formconfig.ModeShown,
}

func TestSubmit_ScenarioA_Accepted(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, scenarioConfig, nil)

	app, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{
		"fullName": "Jane Doe",
		"email":    "jane@x.com",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	stored, err := f.store.GetApplication(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("GetApplication() error = %v", err)
	}
	if stored.JobID != job.ID || stored.Status != model.ApplicationNew {
		t.Errorf("stored = %+v, want job %s status new", stored, job.ID)
	}
	if stored.Fields[formconfig.FieldFullName] != "Jane Doe" || stored.Fields[formconfig.FieldEmail] != "jane@x.com" {
		t.Errorf("Fields = %v", stored.Fields)
	}
	if _, ok := stored.Fields[formconfig.FieldResumeURL]; ok {
		t.Error("absent shown field must not be stored")
	}
	if len(stored.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(stored.Fields))
	}
}

func TestSubmit_ScenarioB_MissingRequiredRejected(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, scenarioConfig, nil)

	_, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{"email": "jane@x.com"})
	var rf *intake.RequiredFieldError
	if !errors.As(err, &rf) {
		t.Fatalf("Submit() error = %v, want RequiredFieldError", err)
	}
	if len(rf.Fields) != 1 || rf.Fields[0] != formconfig.FieldFullName {
		t.Errorf("Fields = %v, want [fullName]", rf.Fields)
	}
	if _, ok := rf.Messages()["fullName"]; !ok {
		t.Errorf("Messages() = %v", rf.Messages())
	}
	if n := f.store.ApplicationCount(); n != 0 {
		t.Errorf("ApplicationCount() = %d, want 0", n)
	}
	if len(f.tasks.types) != 0 || len(f.event.ids) != 0 {
		t.Error("rejected submission must not trigger side effects")
	}
}

func TestSubmit_ScenarioC_DefaultConfig(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, formconfig.FieldConfig{}, nil)

	form, err := f.svc.Form(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Form() error = %v", err)
	}
	if form.Source != binding.SourceDefault {
		t.Errorf("Source = %q, want default", form.Source)
	}

	values := formconfig.Values{
		"fullName":  "Jane Doe",
		"email":     "jane@x.com",
		"phone":     "+44 20 7946 0958",
		"resumeUrl": "https://files.example.com/jane.pdf",
	}
	app, err := f.svc.Submit(context.Background(), job.ID, values)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(app.Fields) != 4 {
		t.Errorf("Fields = %v, want the four default required fields", app.Fields)
	}
}

func TestSubmit_ScenarioD_FormatAsymmetry(t *testing.T) {
	cfg := formconfig.FieldConfig{formconfig.FieldLinkedinProfile: formconfig.ModeRequired}
	values := formconfig.Values{"linkedinProfile": "https://example.com/jane"}

	t.Run("client schema rejects", func(t *testing.T) {
		f := newFixture(t, false)
		job := f.job(t, cfg, nil)
		res, err := f.svc.Preview(context.Background(), job.ID, values)
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		if res.Valid {
			t.Fatal("Preview() valid = true, want linkedin format error")
		}
		if _, ok := res.Errors[formconfig.FieldLinkedinProfile]; !ok {
			t.Errorf("Errors = %v", res.Errors)
		}
	})

	t.Run("presence-only gate accepts", func(t *testing.T) {
		f := newFixture(t, false)
		job := f.job(t, cfg, nil)
		app, err := f.svc.Submit(context.Background(), job.ID, values)
		if err != nil {
			t.Fatalf("Submit() error = %v, want accepted", err)
		}
		if app.Fields[formconfig.FieldLinkedinProfile] != "https://example.com/jane" {
			t.Errorf("Fields = %v", app.Fields)
		}
	})

	t.Run("strict gate rejects", func(t *testing.T) {
		f := newFixture(t, true)
		job := f.job(t, cfg, nil)
		_, err := f.svc.Submit(context.Background(), job.ID, values)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Submit() error = %v, want ValidationError", err)
		}
		if _, ok := ve.Fields["linkedinProfile"]; !ok {
			t.Errorf("Fields = %v", ve.Fields)
		}
		if n := f.store.ApplicationCount(); n != 0 {
			t.Errorf("ApplicationCount() = %d, want 0", n)
		}
	})
}

func TestSubmit_HiddenFieldsNeverStored(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, formconfig.FieldConfig{
		formconfig.FieldEmail:         formconfig.ModeRequired,
		formconfig.FieldCurrentSalary: formconfig.ModeHidden,
	}, nil)

	app, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{
		"email":         "jane@x.com",
		"currentSalary": "90000",
		"phone":         "+1 555 0100 22",
		"favouriteFood": "pasta",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	stored, err := f.store.GetApplication(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("GetApplication() error = %v", err)
	}
	for _, key := range []formconfig.FieldKey{formconfig.FieldCurrentSalary, formconfig.FieldPhone, "favouriteFood"} {
		if _, ok := stored.Fields[key]; ok {
			t.Errorf("field %s stored, want dropped", key)
		}
	}
}

func TestSubmit_BlankRequiredRejected(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, scenarioConfig, nil)
	for _, blank := range []string{"", "   ", "\t\n"} {
		_, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{"fullName": blank, "email": "jane@x.com"})
		var rf *intake.RequiredFieldError
		if !errors.As(err, &rf) {
			t.Errorf("Submit(fullName=%q) error = %v, want RequiredFieldError", blank, err)
		}
	}
	if n := f.store.ApplicationCount(); n != 0 {
		t.Errorf("ApplicationCount() = %d, want 0", n)
	}
}

func TestSubmit_ReportsEveryMissingFieldInOrder(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, scenarioConfig, nil)
	_, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{})
	var rf *intake.RequiredFieldError
	if !errors.As(err, &rf) {
		t.Fatalf("Submit() error = %v", err)
	}
	want := []formconfig.FieldKey{formconfig.FieldFullName, formconfig.FieldEmail}
	if len(rf.Fields) != len(want) || rf.Fields[0] != want[0] || rf.Fields[1] != want[1] {
		t.Errorf("Fields = %v, want %v", rf.Fields, want)
	}
}

func TestSubmit_ValuesAreTrimmed(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, scenarioConfig, nil)
	app, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{
		"fullName":  "  Jane Doe ",
		"email":     "jane@x.com",
		"resumeUrl": "   ",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if app.Fields[formconfig.FieldFullName] != "Jane Doe" {
		t.Errorf("fullName = %q", app.Fields[formconfig.FieldFullName])
	}
	if _, ok := app.Fields[formconfig.FieldResumeURL]; ok {
		t.Error("blank shown field must be omitted")
	}
}

func TestSubmit_UnknownJob(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.Submit(context.Background(), "missing", formconfig.Values{}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Submit() error = %v, want ErrNotFound", err)
	}
}

func TestSubmit_ClosedJob(t *testing.T) {
	f := newFixture(t, false)
	job := &model.Job{ID: "closed", Title: "x", Status: model.JobClosed}
	if err := f.store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	_, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{"fullName": "Jane"})
	if !errors.Is(err, intake.ErrJobClosed) {
		t.Fatalf("Submit() error = %v, want ErrJobClosed", err)
	}
}

func TestSubmit_DanglingTemplateUsesDefault(t *testing.T) {
	f := newFixture(t, false)
	ref := "deleted-template"
	job := f.job(t, nil, &ref)

	_, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{"email": "jane@x.com"})
	var rf *intake.RequiredFieldError
	if !errors.As(err, &rf) {
		t.Fatalf("Submit() error = %v, want default required fields enforced", err)
	}
}

func TestSubmit_StoredApplicationSurvivesConfigChange(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if err := f.store.CreateTemplate(ctx, &model.ConfigTemplate{ID: "t1", Name: "t", Config: formconfig.FieldConfig{
		formconfig.FieldEmail:  formconfig.ModeRequired,
		formconfig.FieldSkills: formconfig.ModeShown,
	}}); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}
	ref := "t1"
	job := f.job(t, nil, &ref)
	app, err := f.svc.Submit(ctx, job.ID, formconfig.Values{"email": "jane@x.com", "skills": "Go, SQL"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := f.store.UpdateTemplate(ctx, &model.ConfigTemplate{ID: "t1", Name: "t", Config: formconfig.FieldConfig{
		formconfig.FieldFullName: formconfig.ModeRequired,
	}}); err != nil {
		t.Fatalf("UpdateTemplate() error = %v", err)
	}
	stored, err := f.store.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetApplication() error = %v", err)
	}
	if stored.Fields[formconfig.FieldSkills] != "Go, SQL" {
		t.Errorf("stored application changed after template update: %v", stored.Fields)
	}
}

func TestSubmit_SideEffects(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, scenarioConfig, nil)

	_, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{
		"fullName":  "Jane Doe",
		"email":     "jane@x.com",
		"resumeUrl": "https://files.example.com/resumes/jane.pdf",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(f.event.ids) != 1 {
		t.Errorf("events published = %d, want 1", len(f.event.ids))
	}
	want := []string{"application:notify", "resume:extract"}
	if len(f.tasks.types) != len(want) || f.tasks.types[0] != want[0] || f.tasks.types[1] != want[1] {
		t.Errorf("tasks = %v, want %v", f.tasks.types, want)
	}
}

func TestSubmit_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, false)
	f.event.err = errors.New("redis down")
	job := f.job(t, scenarioConfig, nil)

	if _, err := f.svc.Submit(context.Background(), job.ID, formconfig.Values{"fullName": "Jane Doe", "email": "jane@x.com"}); err != nil {
		t.Fatalf("Submit() error = %v, want success despite publish failure", err)
	}
	if n := f.store.ApplicationCount(); n != 1 {
		t.Errorf("ApplicationCount() = %d, want 1", n)
	}
}

func TestForm_ListsVisibleFieldsInOrder(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t, formconfig.FieldConfig{
		formconfig.FieldSkills:   formconfig.ModeShown,
		formconfig.FieldFullName: formconfig.ModeRequired,
		formconfig.FieldPhone:    formconfig.ModeHidden,
	}, nil)

	form, err := f.svc.Form(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Form() error = %v", err)
	}
	if form.Source != binding.SourceJob {
		t.Errorf("Source = %q, want job", form.Source)
	}
	if len(form.Fields) != 2 {
		t.Fatalf("Fields = %+v, want 2 entries", form.Fields)
	}
	if form.Fields[0].Key != formconfig.FieldFullName || form.Fields[1].Key != formconfig.FieldSkills {
		t.Errorf("order = %s, %s", form.Fields[0].Key, form.Fields[1].Key)
	}
	if form.Fields[0].Label == "" {
		t.Error("Label is empty")
	}
}

func TestDraftForm_AllowsUnpublishedJob(t *testing.T) {
	f := newFixture(t, false)
	job := &model.Job{ID: "draft", Title: "x", Status: model.JobDraft, Config: scenarioConfig}
	if err := f.store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if _, err := f.svc.Form(context.Background(), job.ID); !errors.Is(err, intake.ErrJobClosed) {
		t.Fatalf("Form() error = %v, want ErrJobClosed", err)
	}
	form, err := f.svc.DraftForm(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("DraftForm() error = %v", err)
	}
	if len(form.Fields) != 3 {
		t.Errorf("Fields = %+v, want 3 entries", form.Fields)
	}

	result, err := f.svc.DraftPreview(context.Background(), job.ID, formconfig.Values{"email": "not-an-email"})
	if err != nil {
		t.Fatalf("DraftPreview() error = %v", err)
	}
	if result.Valid {
		t.Error("preview of invalid values reported valid")
	}
	if _, err := f.svc.DraftForm(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("DraftForm() error = %v, want ErrNotFound", err)
	}
}
