package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// JobRepository stores job postings.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository constructs a repository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `id, title, location, industry, description, eligibility,
	salary_min, salary_max, currency, experience_min, experience_max,
	type, status, priority, config_id, config, created_at, updated_at`

// CreateJob inserts a job.
func (r *JobRepository) CreateJob(ctx context.Context, j *model.Job) error {
	cfg, err := encodeConfig(j.Config)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now
	_, err = r.pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, j.ID, j.Title, j.Location, j.Industry, j.Description, j.Eligibility,
		j.SalaryMin, j.SalaryMax, j.Currency, j.ExperienceMin, j.ExperienceMax,
		j.Type, j.Status, j.Priority, j.ConfigID, cfg, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob overwrites every mutable column of a job.
func (r *JobRepository) UpdateJob(ctx context.Context, j *model.Job) error {
	cfg, err := encodeConfig(j.Config)
	if err != nil {
		return err
	}
	j.UpdatedAt = time.Now().UTC()
	err = r.pool.QueryRow(ctx, `
		UPDATE jobs SET title=$1, location=$2, industry=$3, description=$4, eligibility=$5,
			salary_min=$6, salary_max=$7, currency=$8, experience_min=$9, experience_max=$10,
			type=$11, status=$12, priority=$13, config_id=$14, config=$15, updated_at=$16
		WHERE id=$17
		RETURNING created_at
	`, j.Title, j.Location, j.Industry, j.Description, j.Eligibility,
		j.SalaryMin, j.SalaryMax, j.Currency, j.ExperienceMin, j.ExperienceMax,
		j.Type, j.Status, j.Priority, j.ConfigID, cfg, j.UpdatedAt, j.ID).Scan(&j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("job %s: %w", j.ID, model.ErrNotFound)
		}
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// DeleteJob removes a job; its applications go with it.
func (r *JobRepository) DeleteJob(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetJob returns a job by id.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs in the given status (all when empty), urgent and
// featured first, then newest first.
func (r *JobRepository) ListJobs(ctx context.Context, status model.JobStatus) ([]model.Job, error) {
	const order = ` ORDER BY CASE priority WHEN 'urgent' THEN 2 WHEN 'featured' THEN 1 ELSE 0 END DESC, created_at DESC`
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = r.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status=$1`+order, status)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs`+order)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return collectJobs(rows)
}

// ListDanglingJobs returns jobs whose config_id matches no template.
func (r *JobRepository) ListDanglingJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs j
		WHERE j.config_id IS NOT NULL AND j.config_id <> ''
		  AND NOT EXISTS (SELECT 1 FROM config_templates t WHERE t.id = j.config_id)
		ORDER BY j.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list dangling jobs: %w", err)
	}
	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]model.Job, error) {
	defer rows.Close()
	out := make([]model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j   model.Job
		raw []byte
	)
	if err := row.Scan(&j.ID, &j.Title, &j.Location, &j.Industry, &j.Description, &j.Eligibility,
		&j.SalaryMin, &j.SalaryMax, &j.Currency, &j.ExperienceMin, &j.ExperienceMax,
		&j.Type, &j.Status, &j.Priority, &j.ConfigID, &raw, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}
	j.Config = cfg
	return &j, nil
}
