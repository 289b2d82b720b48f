package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// TemplateRepository stores config templates in the config_templates table.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository constructs a repository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// CreateTemplate inserts a template and stamps its timestamps.
func (r *TemplateRepository) CreateTemplate(ctx context.Context, t *model.ConfigTemplate) error {
	cfg, err := encodeConfig(t.Config)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err = r.pool.Exec(ctx, `
		INSERT INTO config_templates (id, name, config, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, t.ID, t.Name, cfg, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// UpdateTemplate replaces name and config.
func (r *TemplateRepository) UpdateTemplate(ctx context.Context, t *model.ConfigTemplate) error {
	cfg, err := encodeConfig(t.Config)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()
	err = r.pool.QueryRow(ctx, `
		UPDATE config_templates SET name=$1, config=$2, updated_at=$3
		WHERE id=$4
		RETURNING created_at
	`, t.Name, cfg, t.UpdatedAt, t.ID).Scan(&t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("template %s: %w", t.ID, model.ErrNotFound)
		}
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// DeleteTemplate removes a template. Jobs referencing it are left alone.
func (r *TemplateRepository) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM config_templates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetTemplate returns a template by id.
func (r *TemplateRepository) GetTemplate(ctx context.Context, id string) (*model.ConfigTemplate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, config, created_at, updated_at
		FROM config_templates WHERE id=$1
	`, id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select template: %w", err)
	}
	return t, nil
}

// ListTemplates returns all templates, most recently updated first.
func (r *TemplateRepository) ListTemplates(ctx context.Context) ([]model.ConfigTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, config, created_at, updated_at
		FROM config_templates ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	out := make([]model.ConfigTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTemplate(row pgx.Row) (*model.ConfigTemplate, error) {
	var (
		t   model.ConfigTemplate
		raw []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &raw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}
	t.Config = cfg
	return &t, nil
}

func encodeConfig(cfg formconfig.FieldConfig) ([]byte, error) {
	if cfg == nil {
		cfg = formconfig.FieldConfig{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func decodeConfig(raw []byte) (formconfig.FieldConfig, error) {
	cfg := formconfig.FieldConfig{}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
