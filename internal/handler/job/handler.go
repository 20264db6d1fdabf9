package job

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/service/executor"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/httputil"
)

type Handler struct {
	executor *executor.Service
}

func NewHandler(executor *executor.Service) *Handler {
	return &Handler{executor: executor}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	jobs := r.Group("/jobs")
	{
		jobs.POST("/:id/callback", h.ExecuteCallback)
	}
}

type callbackRequest struct {
	Token string `json:"token"`
}

// ExecuteCallback is the scheduler's webhook entry point. The one-time
// token travels in the body; older scheduler versions send it as a
// bearer header, so that is accepted as a fallback.
func (h *Handler) ExecuteCallback(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid job ID", err))
		return
	}

	var req callbackRequest
	_ = c.ShouldBindJSON(&req)
	token := req.Token
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	if err := h.executor.ExecuteJob(c.Request.Context(), jobID, token); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"job_id": jobID, "status": "delivered"})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
