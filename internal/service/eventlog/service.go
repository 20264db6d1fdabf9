package eventlog

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/httputil"
	"github.com/jwalitptl/notify-api/pkg/logger"
)

// EventPage is one page of per-message summaries.
type EventPage struct {
	Events     []*model.MessageEventSummary `json:"events"`
	TotalCount int64                        `json:"total_count"`
	Links      httputil.PageLinks           `json:"links"`
}

// Service is the read-model over the event log.
type Service struct {
	repo   repository.EventLogRepository
	logger *logger.Logger
}

func NewService(repo repository.EventLogRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// ListEvents folds raw event rows into one summary per message, keeping
// the last-seen status/type, then orders summaries by scheduled time
// descending. Repository failures come back as an empty page rather
// than a partial aggregation.
func (s *Service) ListEvents(ctx context.Context, orgID uuid.UUID, search string, limit, offset int, basePath string) *EventPage {
	limit = httputil.ClampLimit(limit)
	offset = httputil.ClampOffset(offset)

	rows, total, err := s.repo.ListByOrganization(ctx, orgID, search, limit, offset)
	if err != nil {
		s.logger.Error(err, "failed to load event page",
			"organization_id", orgID.String())
		return &EventPage{
			Events: []*model.MessageEventSummary{},
			Links:  httputil.NewPageLinks(basePath, limit, offset, 0),
		}
	}

	page := &EventPage{
		Events:     Aggregate(rows),
		TotalCount: total,
		Links:      httputil.NewPageLinks(basePath, limit, offset, int(total)),
	}
	return page
}

// GetMessageEvents returns one message's raw timeline, oldest first.
func (s *Service) GetMessageEvents(ctx context.Context, messageID uuid.UUID) ([]*model.EventLog, error) {
	return s.repo.ListByMessage(ctx, messageID)
}

// Aggregate folds raw rows (ordered oldest to newest) into one summary
// per message id; later rows overwrite earlier status/type. The result
// is sorted by the message's scheduled time, newest first.
func Aggregate(rows []*model.EventWithMessage) []*model.MessageEventSummary {
	byMessage := make(map[uuid.UUID]*model.MessageEventSummary)
	order := make([]uuid.UUID, 0)

	for _, row := range rows {
		summary, ok := byMessage[row.MessageID]
		if !ok {
			summary = &model.MessageEventSummary{
				MessageID:   row.MessageID,
				Subject:     row.Subject,
				ScheduledAt: row.ScheduledAt,
			}
			byMessage[row.MessageID] = summary
			order = append(order, row.MessageID)
		}
		summary.EventStatus = row.EventStatus
		summary.EventType = row.EventType
	}

	summaries := make([]*model.MessageEventSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, byMessage[id])
	}

	// Newest scheduled first; insertion order breaks ties.
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].ScheduledAt.After(summaries[j].ScheduledAt)
	})
	return summaries
}
