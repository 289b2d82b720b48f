// Package events publishes application activity on Redis pub/sub so admin
// dashboards can refresh without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// ApplicationSubmittedChannel carries one message per accepted application.
const ApplicationSubmittedChannel = "application.submitted"

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Submitted is the JSON body of an application.submitted message. Candidate
// field values are left out on purpose; subscribers fetch the record.
type Submitted struct {
	Type          string    `json:"type"`
	ApplicationID string    `json:"applicationId"`
	JobID         string    `json:"jobId"`
	JobTitle      string    `json:"jobTitle"`
	FieldCount    int       `json:"fieldCount"`
	AppliedAt     time.Time `json:"appliedAt"`
}

// Publisher sends events through a Redis client.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher returns a Publisher.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// ApplicationSubmitted publishes the submission event.
func (p *Publisher) ApplicationSubmitted(ctx context.Context, app *model.Application, job *model.Job) error {
	payload, err := json.Marshal(NewSubmitted(app, job))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, ApplicationSubmittedChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ApplicationSubmittedChannel, err)
	}
	return nil
}

// NewSubmitted builds the event for an accepted application.
func NewSubmitted(app *model.Application, job *model.Job) Submitted {
	return Submitted{
		Type:          ApplicationSubmittedChannel,
		ApplicationID: app.ID,
		JobID:         job.ID,
		JobTitle:      job.Title,
		FieldCount:    len(app.Fields),
		AppliedAt:     app.AppliedAt,
	}
}

// Subscribe streams decoded submission events until ctx is cancelled. The
// returned channel is closed when the subscription ends.
func Subscribe(ctx context.Context, rdb *redis.Client) <-chan Submitted {
	out := make(chan Submitted)
	sub := rdb.Subscribe(ctx, ApplicationSubmittedChannel)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Submitted
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
