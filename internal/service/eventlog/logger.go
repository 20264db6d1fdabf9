package eventlog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// Entry is one per-recipient payload for a lifecycle event.
type Entry struct {
	MessageID uuid.UUID
	Data      model.EventData
}

// Logger appends audit rows for lifecycle transitions. It is pure
// write-side: a failed write is logged, never surfaced, so the delivery
// path can never be aborted by its own audit trail.
type Logger struct {
	repo    repository.EventLogRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewLogger(repo repository.EventLogRepository, log *logger.Logger, m *metrics.Metrics) *Logger {
	return &Logger{
		repo:    repo,
		logger:  log,
		metrics: m,
	}
}

// Log appends one row per entry in a single batch insert. An empty
// entry list is a warning, not a write.
func (l *Logger) Log(ctx context.Context, status model.EventStatus, key model.EventKey, entries []Entry) {
	if len(entries) == 0 {
		l.logger.Warn("event log called with no entries",
			"event_status", string(status),
			"event_type", string(key))
		return
	}

	rows := make([]*model.EventLog, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry.Data)
		if err != nil {
			l.logger.Error(err, "failed to marshal event data",
				"message_id", entry.MessageID.String())
			continue
		}
		rows = append(rows, &model.EventLog{
			EventStatus: status,
			EventType:   key,
			Data:        data,
			MessageID:   entry.MessageID,
		})
	}
	if len(rows) == 0 {
		return
	}

	if err := l.repo.CreateBatch(ctx, rows); err != nil {
		l.logger.Error(err, "failed to append event log entries",
			"event_status", string(status),
			"event_type", string(key),
			"entries", len(rows))
		l.countWrite("error")
		return
	}
	l.countWrite("success")
}

// LogOne is the single-recipient convenience used on the execution path.
func (l *Logger) LogOne(ctx context.Context, status model.EventStatus, key model.EventKey, messageID uuid.UUID, data model.EventData) {
	l.Log(ctx, status, key, []Entry{{MessageID: messageID, Data: data}})
}

func (l *Logger) countWrite(result string) {
	if l.metrics != nil {
		l.metrics.EventLogWrites.WithLabelValues(result).Inc()
	}
}
