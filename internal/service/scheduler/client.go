package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/circuitbreaker"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
	"github.com/jwalitptl/notify-api/pkg/security"
)

// Task is one callback registration handed to the external scheduler.
type Task struct {
	WebhookURL  string    `json:"webhookUrl"`
	WebhookAuth string    `json:"webhookAuth"`
	ExecuteAt   time.Time `json:"executeAt"`
}

// Pair addresses one scheduled delivery: the entity being delivered
// (message or template batch entry) and its recipient.
type Pair struct {
	EntityID uuid.UUID `json:"entity_id"`
	UserID   uuid.UUID `json:"user_id"`
}

// Client registers one callback per job with the external scheduler.
// Job rows are committed before the scheduler hears about them; a
// registration failure leaves them pending for external reconciliation.
type Client struct {
	jobs    repository.JobRepository
	events  *eventlog.Logger
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
	cfg     config.SchedulerConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewClient(jobs repository.JobRepository, events *eventlog.Logger, cfg config.SchedulerConfig, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		jobs:   jobs,
		events: events,
		http:   &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "scheduler",
			MaxRequests: 100,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
		}),
		cfg:     cfg,
		logger:  log,
		metrics: m,
	}
}

// ScheduleMessages creates one pending job row per pair inside a single
// transaction, then registers the whole batch with the scheduler.
func (c *Client) ScheduleMessages(ctx context.Context, orgID uuid.UUID, jobType model.JobType, pairs []Pair, executeAt time.Time) ([]*model.Job, error) {
	if len(pairs) == 0 {
		return nil, errors.BadRequest("nothing to schedule", nil)
	}

	jobs := make([]*model.Job, 0, len(pairs))
	tasks := make([]Task, 0, len(pairs))
	for _, pair := range pairs {
		token, err := security.NewCallbackToken()
		if err != nil {
			return nil, errors.Internal(fmt.Errorf("failed to generate callback token: %w", err))
		}
		hash, err := security.HashToken(token)
		if err != nil {
			return nil, errors.Internal(fmt.Errorf("failed to hash callback token: %w", err))
		}

		job := &model.Job{
			ID:             uuid.New(),
			JobType:        jobType,
			OrganizationID: orgID,
			EntityID:       pair.EntityID,
			UserID:         pair.UserID,
			TokenHash:      hash,
		}
		jobs = append(jobs, job)
		tasks = append(tasks, Task{
			WebhookURL:  c.webhookURL(job.ID),
			WebhookAuth: token,
			ExecuteAt:   executeAt,
		})
	}

	if err := c.jobs.CreateBatch(ctx, jobs); err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to persist jobs: %w", err))
	}

	if err := c.registerTasks(ctx, tasks); err != nil {
		// Job rows stay pending; reconciliation of orphaned pending
		// jobs is owned by an external process.
		c.logger.Error(err, "scheduler registration failed",
			"organization_id", orgID.String(),
			"jobs", len(jobs))
		c.countRequest("error")
		return nil, errors.ThirdParty("scheduler", err)
	}
	c.countRequest("success")

	if jobType == model.JobTypeMessage {
		entries := make([]eventlog.Entry, 0, len(jobs))
		for _, job := range jobs {
			entries = append(entries, eventlog.Entry{
				MessageID: job.EntityID,
				Data:      model.EventData{JobID: job.ID.String()},
			})
		}
		c.events.Log(ctx, model.EventStatusPending, model.EventKeySchedule, entries)
	}

	return jobs, nil
}

func (c *Client) registerTasks(ctx context.Context, tasks []Task) error {
	body, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}

	return c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/tasks", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("scheduler call failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("scheduler returned status %d", resp.StatusCode)
		}
		return nil
	})
}

func (c *Client) webhookURL(jobID uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/jobs/%s/callback", c.cfg.WebhookBaseURL, jobID)
}

func (c *Client) countRequest(result string) {
	if c.metrics != nil {
		c.metrics.SchedulerRequests.WithLabelValues(result).Inc()
	}
}
