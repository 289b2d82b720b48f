package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// NotifyApplicationTask is scheduled for every accepted application.
	NotifyApplicationTask = "application:notify"
	// ExtractResumeTask is scheduled when an accepted application carries a
	// resume URL.
	ExtractResumeTask = "resume:extract"
)

// NotifyPayload tells the worker which application to announce.
type NotifyPayload struct {
	ApplicationID string `json:"application_id"`
	JobID         string `json:"job_id"`
	JobTitle      string `json:"job_title"`
}

// ExtractPayload points the worker at the uploaded resume.
type ExtractPayload struct {
	ApplicationID string `json:"application_id"`
	ResumeURL     string `json:"resume_url"`
}

// Enqueuer schedules background work. Client sends tasks to Redis; the
// in-process pool runs them locally when Redis is not configured.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error
}

// Client adapts *asynq.Client to Enqueuer.
type Client struct {
	client *asynq.Client
}

// NewClient wraps an asynq client.
func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// Enqueue implements Enqueuer.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return err
	}
	return nil
}

// NewNotifyTask builds the notification task.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(NotifyApplicationTask, data), nil
}

// NewExtractTask builds the resume extraction task.
func NewExtractTask(payload ExtractPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ExtractResumeTask, data), nil
}

// EnqueueNotify enqueues an application notification.
func EnqueueNotify(ctx context.Context, q Enqueuer, payload NotifyPayload) error {
	task, err := NewNotifyTask(payload)
	if err != nil {
		return err
	}
	if err := q.Enqueue(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue notify task: %w", err)
	}
	return nil
}

// EnqueueExtract enqueues a resume text extraction.
func EnqueueExtract(ctx context.Context, q Enqueuer, payload ExtractPayload) error {
	task, err := NewExtractTask(payload)
	if err != nil {
		return err
	}
	if err := q.Enqueue(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue extract task: %w", err)
	}
	return nil
}
