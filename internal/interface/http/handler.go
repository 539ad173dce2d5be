package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushelp/canvas-assistant/internal/domain/assistant"
	"github.com/campushelp/canvas-assistant/internal/domain/export"
	apperrors "github.com/campushelp/canvas-assistant/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	assistantSvc assistant.Service
	exportSvc    export.Service
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(assistantSvc assistant.Service, exportSvc export.Service, logger *slog.Logger) *Handler {
	return &Handler{
		assistantSvc: assistantSvc,
		exportSvc:    exportSvc,
		logger:       logger.With("component", "http.handler"),
	}
}

// Chat resolves one user question against the knowledge base.
func (h *Handler) Chat(c *gin.Context) {
	var req assistant.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.assistantSvc.Resolve(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		code := "chat_failed"
		switch {
		case apperrors.IsCode(err, apperrors.CodeInvalidInput):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, apperrors.CodeLLMError):
			status = http.StatusBadGateway
			code = "llm_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// feedbackPayload is the transport shape of a feedback submission. IsPositive
// is a pointer so that a missing field is rejected rather than read as false.
type feedbackPayload struct {
	ResponseID int64          `json:"responseId"`
	IsPositive *bool          `json:"isPositive" binding:"required"`
	SessionID  string         `json:"sessionId"`
	Metadata   map[string]any `json:"metadata"`
}

// Feedback records one thumbs up/down reaction to a delivered answer.
func (h *Handler) Feedback(c *gin.Context) {
	var payload feedbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	result, err := h.assistantSvc.SubmitFeedback(c.Request.Context(), assistant.FeedbackRequest{
		ResponseID: payload.ResponseID,
		IsPositive: *payload.IsPositive,
		SessionID:  payload.SessionID,
		Metadata:   payload.Metadata,
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "feedback_failed"
		switch {
		case apperrors.IsCode(err, apperrors.CodeInvalidInput):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, apperrors.CodeNotFound):
			status = http.StatusNotFound
			code = "not_found"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "recorded", "qa": result})
}

// TopQuestions returns the most frequently asked questions.
func (h *Handler) TopQuestions(c *gin.Context) {
	items, err := h.assistantSvc.TopQuestions(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "listing_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": items})
}

// AdminQuestions returns the full knowledge base ordered by priority score.
func (h *Handler) AdminQuestions(c *gin.Context) {
	records, err := h.assistantSvc.RankedAnswers(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "listing_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": records})
}

// AdminExport writes a JSON and CSV snapshot of the knowledge base to storage.
func (h *Handler) AdminExport(c *gin.Context) {
	result, err := h.exportSvc.Snapshot(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "export_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdminInvalidateCache drops every cached answer.
func (h *Handler) AdminInvalidateCache(c *gin.Context) {
	if err := h.assistantSvc.InvalidateCache(c.Request.Context()); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "cache_invalidation_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
