package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/security"
)

type schedulerJobRepoStub struct {
	created []*model.Job
}

func (s *schedulerJobRepoStub) CreateBatch(ctx context.Context, jobs []*model.Job) error {
	s.created = append(s.created, jobs...)
	return nil
}

func (s *schedulerJobRepoStub) GetForExecution(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return nil, errors.NotFound("job", nil)
}

func (s *schedulerJobRepoStub) Claim(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return nil, errors.NotFound("job", nil)
}

func (s *schedulerJobRepoStub) SetStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus) error {
	return nil
}

func (s *schedulerJobRepoStub) ListStaleWorking(ctx context.Context, olderThan time.Time, limit int) ([]*model.Job, error) {
	return nil, nil
}

type schedulerEventRepoStub struct {
	rows []*model.EventLog
}

func (s *schedulerEventRepoStub) CreateBatch(ctx context.Context, entries []*model.EventLog) error {
	s.rows = append(s.rows, entries...)
	return nil
}

func (s *schedulerEventRepoStub) ListByOrganization(ctx context.Context, orgID uuid.UUID, search string, limit, offset int) ([]*model.EventWithMessage, int64, error) {
	return nil, 0, nil
}

func (s *schedulerEventRepoStub) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*model.EventLog, error) {
	return nil, nil
}

func (s *schedulerEventRepoStub) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestClient(jobs *schedulerJobRepoStub, events *schedulerEventRepoStub, apiURL string) *Client {
	log := logger.NewLogger(nil)
	return NewClient(jobs, eventlog.NewLogger(events, log, nil), config.SchedulerConfig{
		APIURL:         apiURL,
		WebhookBaseURL: "https://notify.example.com",
		Timeout:        2 * time.Second,
	}, log, nil)
}

func TestScheduleMessagesRegistersTasks(t *testing.T) {
	var received []Task
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	jobs := &schedulerJobRepoStub{}
	events := &schedulerEventRepoStub{}
	client := newTestClient(jobs, events, srv.URL)

	executeAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	pairs := []Pair{
		{EntityID: uuid.New(), UserID: uuid.New()},
		{EntityID: uuid.New(), UserID: uuid.New()},
	}

	out, err := client.ScheduleMessages(context.Background(), uuid.New(), model.JobTypeMessage, pairs, executeAt)

	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, jobs.created, 2)
	require.Len(t, received, 2)

	for i, task := range received {
		assert.Equal(t, "https://notify.example.com/api/v1/jobs/"+out[i].ID.String()+"/callback", task.WebhookURL)
		assert.True(t, task.ExecuteAt.Equal(executeAt))

		// The scheduler receives the plaintext; the row stores only the hash.
		assert.NotEmpty(t, task.WebhookAuth)
		assert.NotEqual(t, task.WebhookAuth, out[i].TokenHash)
		assert.NoError(t, security.CompareToken(out[i].TokenHash, task.WebhookAuth))
	}

	// Pending jobs start with a NULL delivery status.
	for _, job := range out {
		assert.Equal(t, "pending", job.Status())
	}

	// One schedule event per message job.
	require.Len(t, events.rows, 2)
	assert.Equal(t, model.EventKeySchedule, events.rows[0].EventType)
	assert.Equal(t, model.EventStatusPending, events.rows[0].EventStatus)
}

func TestScheduleMessagesSchedulerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	jobs := &schedulerJobRepoStub{}
	events := &schedulerEventRepoStub{}
	client := newTestClient(jobs, events, srv.URL)

	_, err := client.ScheduleMessages(context.Background(), uuid.New(), model.JobTypeMessage, []Pair{
		{EntityID: uuid.New(), UserID: uuid.New()},
	}, time.Now().Add(time.Hour))

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindThirdParty))

	// Rows were committed before the call and stay pending.
	require.Len(t, jobs.created, 1)
	assert.Equal(t, "pending", jobs.created[0].Status())

	// No schedule event is logged for a failed registration.
	assert.Empty(t, events.rows)
}

func TestScheduleMessagesRejectsEmptyBatch(t *testing.T) {
	client := newTestClient(&schedulerJobRepoStub{}, &schedulerEventRepoStub{}, "http://127.0.0.1:0")

	_, err := client.ScheduleMessages(context.Background(), uuid.New(), model.JobTypeMessage, nil, time.Now())

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBadRequest))
}

func TestTemplateJobsSkipScheduleEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	events := &schedulerEventRepoStub{}
	client := newTestClient(&schedulerJobRepoStub{}, events, srv.URL)

	_, err := client.ScheduleMessages(context.Background(), uuid.New(), model.JobTypeTemplate, []Pair{
		{EntityID: uuid.New(), UserID: uuid.New()},
	}, time.Now().Add(time.Hour))

	require.NoError(t, err)
	// Schedule events reference message rows; template batches have none yet.
	assert.Empty(t, events.rows)
}
