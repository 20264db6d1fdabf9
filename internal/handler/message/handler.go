package message

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/service/composer"
	"github.com/jwalitptl/notify-api/internal/service/scheduler"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/httputil"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transport", func(fl validator.FieldLevel) bool {
			switch model.Transport(fl.Field().String()) {
			case model.TransportEmail, model.TransportSMS, model.TransportInApp:
				return true
			}
			return false
		})
	}
}

type Handler struct {
	composer  *composer.Service
	scheduler *scheduler.Client
}

func NewHandler(composer *composer.Service, scheduler *scheduler.Client) *Handler {
	return &Handler{composer: composer, scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	{
		messages.POST("", h.CreateMessages)
		messages.POST("/template", h.CreateTemplateMessages)
		messages.GET("/:id", h.GetMessage)
	}
	templates := r.Group("/templates")
	{
		templates.POST("/:id/schedule", h.ScheduleTemplate)
	}
}

type recipientRequest struct {
	UserID     string            `json:"user_id" binding:"required,uuid"`
	Name       string            `json:"name"`
	Email      string            `json:"email" binding:"omitempty,email"`
	Phone      string            `json:"phone"`
	Lang       string            `json:"lang"`
	Attributes map[string]string `json:"attributes"`
}

type createMessagesRequest struct {
	OrganizationID      string             `json:"organization_id" binding:"required,uuid"`
	Recipients          []recipientRequest `json:"recipients" binding:"required,min=1,dive"`
	Subject             string             `json:"subject"`
	Excerpt             string             `json:"excerpt"`
	PlainText           string             `json:"plain_text"`
	RichText            string             `json:"rich_text"`
	PreferredTransports []string           `json:"preferred_transports" binding:"required,min=1,dive,transport"`
	SecurityLevel       string             `json:"security_level"`
	Thread              string             `json:"thread"`
	Name                string             `json:"name"`
	ScheduledAt         time.Time          `json:"scheduled_at" binding:"required"`
}

// CreateMessages persists one message per recipient and registers a
// delivery job with the scheduler for each one.
func (h *Handler) CreateMessages(c *gin.Context) {
	var req createMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
		return
	}

	orgID := uuid.MustParse(req.OrganizationID)
	msgs, err := h.composer.CreateMessages(c.Request.Context(), &composer.CreateMessagesRequest{
		OrganizationID: orgID,
		Recipients:     toRecipients(req.Recipients),
		Content: model.Content{
			Subject:   req.Subject,
			Excerpt:   req.Excerpt,
			PlainText: req.PlainText,
			RichText:  req.RichText,
		},
		PreferredTransports: req.PreferredTransports,
		SecurityLevel:       req.SecurityLevel,
		Thread:              req.Thread,
		Name:                req.Name,
		ScheduledAt:         req.ScheduledAt,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.scheduleMessages(c, orgID, msgs, req.ScheduledAt); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, msgs)
}

type createTemplateMessagesRequest struct {
	OrganizationID      string             `json:"organization_id" binding:"required,uuid"`
	TemplateID          string             `json:"template_id" binding:"required,uuid"`
	Interpolations      map[string]string  `json:"interpolations"`
	Recipients          []recipientRequest `json:"recipients" binding:"required,min=1,dive"`
	PreferredTransports []string           `json:"preferred_transports" binding:"required,min=1,dive,transport"`
	SecurityLevel       string             `json:"security_level"`
	Thread              string             `json:"thread"`
	Name                string             `json:"name"`
	ScheduledAt         time.Time          `json:"scheduled_at" binding:"required"`
}

// CreateTemplateMessages materializes the template per recipient up
// front and schedules delivery jobs for the resulting messages.
func (h *Handler) CreateTemplateMessages(c *gin.Context) {
	var req createTemplateMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
		return
	}

	orgID := uuid.MustParse(req.OrganizationID)
	msgs, err := h.composer.CreateTemplateMessages(c.Request.Context(), &composer.CreateTemplateMessagesRequest{
		OrganizationID:      orgID,
		TemplateID:          uuid.MustParse(req.TemplateID),
		Interpolations:      req.Interpolations,
		Recipients:          toRecipients(req.Recipients),
		PreferredTransports: req.PreferredTransports,
		SecurityLevel:       req.SecurityLevel,
		Thread:              req.Thread,
		Name:                req.Name,
		ScheduledAt:         req.ScheduledAt,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.scheduleMessages(c, orgID, msgs, req.ScheduledAt); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, msgs)
}

type scheduleTemplateRequest struct {
	OrganizationID      string            `json:"organization_id" binding:"required,uuid"`
	Interpolations      map[string]string `json:"interpolations"`
	UserIDs             []string          `json:"user_ids" binding:"required,min=1,dive,uuid"`
	PreferredTransports []string          `json:"preferred_transports" binding:"required,min=1,dive,transport"`
	SecurityLevel       string            `json:"security_level"`
	ScheduledAt         time.Time         `json:"scheduled_at" binding:"required"`
}

// ScheduleTemplate defers materialization: it stores the batch entry and
// registers one template job per target user, all pointing at the same
// batch. The executor composes the concrete message at delivery time.
func (h *Handler) ScheduleTemplate(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid template ID", err))
		return
	}

	var req scheduleTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
		return
	}

	orgID := uuid.MustParse(req.OrganizationID)
	tm, err := h.composer.ScheduleTemplate(c.Request.Context(), &composer.ScheduleTemplateRequest{
		OrganizationID:      orgID,
		TemplateID:          templateID,
		Interpolations:      req.Interpolations,
		PreferredTransports: req.PreferredTransports,
		SecurityLevel:       req.SecurityLevel,
		ScheduledAt:         req.ScheduledAt,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	pairs := make([]scheduler.Pair, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		pairs = append(pairs, scheduler.Pair{EntityID: tm.ID, UserID: uuid.MustParse(userID)})
	}
	if _, err := h.scheduler.ScheduleMessages(c.Request.Context(), orgID, model.JobTypeTemplate, pairs, req.ScheduledAt); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, tm)
}

func (h *Handler) GetMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid message ID", err))
		return
	}

	msg, err := h.composer.GetMessage(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, msg)
}

func (h *Handler) scheduleMessages(c *gin.Context, orgID uuid.UUID, msgs []*model.Message, executeAt time.Time) error {
	pairs := make([]scheduler.Pair, 0, len(msgs))
	for _, msg := range msgs {
		pairs = append(pairs, scheduler.Pair{EntityID: msg.ID, UserID: msg.UserID})
	}
	_, err := h.scheduler.ScheduleMessages(c.Request.Context(), orgID, model.JobTypeMessage, pairs, executeAt)
	return err
}

func toRecipients(reqs []recipientRequest) []model.Recipient {
	recipients := make([]model.Recipient, 0, len(reqs))
	for _, r := range reqs {
		recipients = append(recipients, model.Recipient{
			UserID:     uuid.MustParse(r.UserID),
			Name:       r.Name,
			Email:      r.Email,
			Phone:      r.Phone,
			Lang:       r.Lang,
			Attributes: r.Attributes,
		})
	}
	return recipients
}
