package event

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/httputil"
)

type Handler struct {
	events *eventlog.Service
}

func NewHandler(events *eventlog.Service) *Handler {
	return &Handler{events: events}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.GET("/:message_id", h.GetMessageEvents)
	}
}

// ListEvents returns the paginated per-message event summaries for an
// organization, newest scheduled message first.
func (h *Handler) ListEvents(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid organization ID", err))
		return
	}

	limit := httputil.ClampLimit(queryInt(c, "limit", httputil.DefaultLimit))
	offset := httputil.ClampOffset(queryInt(c, "offset", 0))
	search := c.Query("search")

	page := h.events.ListEvents(c.Request.Context(), orgID, search, limit, offset, c.Request.URL.Path)
	httputil.RespondWithSuccess(c, page)
}

// GetMessageEvents returns the raw event rows for one message, oldest
// first.
func (h *Handler) GetMessageEvents(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid message ID", err))
		return
	}

	events, err := h.events.GetMessageEvents(c.Request.Context(), messageID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, events)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
