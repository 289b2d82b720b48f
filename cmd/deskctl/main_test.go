package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

func TestWriteTemplates(t *testing.T) {
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	list := []model.ConfigTemplate{{
		ID:   "tpl-1",
		Name: "Tech",
		Config: formconfig.FieldConfig{
			formconfig.FieldFullName: formconfig.ModeRequired,
			formconfig.FieldEmail:    formconfig.ModeRequired,
			formconfig.FieldSkills:   formconfig.ModeShown,
			formconfig.FieldGender:   formconfig.ModeHidden,
		},
		UpdatedAt: updated,
	}}

	var buf bytes.Buffer
	if err := writeTemplates(&buf, list); err != nil {
		t.Fatalf("writeTemplates() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	got := strings.Fields(lines[1])
	want := []string{"tpl-1", "Tech", "2", "1", "2026-03-01T09:00:00Z"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("row = %v, want %v", got, want)
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"templates", "list"},
		{"resolve"},
		{"audit"},
		{"token"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("command %v not registered (err = %v)", path, err)
		}
	}
}

func TestResolveRequiresJobID(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCommand()
	root.SetArgs([]string{"resolve"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestCommandsNeedDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCommand()
	root.SetArgs([]string{"audit"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("Execute() error = %v, want DATABASE_URL error", err)
	}
}
