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

// ApplicationRepository stores candidate applications.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository constructs a repository.
func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

const applicationColumns = `id, job_id, fields, status, notes, resume_text, applied_at, updated_at`

// CreateApplication inserts an application in a single statement.
func (r *ApplicationRepository) CreateApplication(ctx context.Context, a *model.Application) error {
	fields, err := json.Marshal(a.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	now := time.Now().UTC()
	a.AppliedAt = now
	a.UpdatedAt = now
	_, err = r.pool.Exec(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.JobID, fields, a.Status, a.Notes, a.ResumeText, a.AppliedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// GetApplication returns an application by id.
func (r *ApplicationRepository) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=$1`, id)
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select application: %w", err)
	}
	return a, nil
}

// ListApplications returns applications matching f, newest first.
func (r *ApplicationRepository) ListApplications(ctx context.Context, f model.ApplicationFilter) ([]model.Application, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE ($1 = '' OR job_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY applied_at DESC
	`, f.JobID, string(f.Status))
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()
	out := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateApplication sets the pipeline status and/or the admin notes in one
// statement. A nil argument leaves that column unchanged.
func (r *ApplicationRepository) UpdateApplication(ctx context.Context, id string, status *model.ApplicationStatus, notes *string) (*model.Application, error) {
	var st *string
	if status != nil {
		v := string(*status)
		st = &v
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE applications SET status=COALESCE($1::text, status), notes=COALESCE($2::text, notes), updated_at=$3
		WHERE id=$4
		RETURNING `+applicationColumns, st, notes, time.Now().UTC(), id)
	return r.scanUpdated(row, id)
}

// SetResumeText stores text extracted from the candidate's resume.
func (r *ApplicationRepository) SetResumeText(ctx context.Context, id, text string) error {
	_, err := r.update(ctx, id, `resume_text=$1`, text)
	return err
}

func (r *ApplicationRepository) update(ctx context.Context, id, set string, value any) (*model.Application, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE applications SET `+set+`, updated_at=$2
		WHERE id=$3
		RETURNING `+applicationColumns, value, time.Now().UTC(), id)
	return r.scanUpdated(row, id)
}

func (r *ApplicationRepository) scanUpdated(row pgx.Row, id string) (*model.Application, error) {
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("update application: %w", err)
	}
	return a, nil
}

func scanApplication(row pgx.Row) (*model.Application, error) {
	var (
		a   model.Application
		raw []byte
	)
	if err := row.Scan(&a.ID, &a.JobID, &raw, &a.Status, &a.Notes, &a.ResumeText, &a.AppliedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Fields = make(map[formconfig.FieldKey]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	return &a, nil
}
