package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/models"
	"github.com/doclens/doclens/internal/translate"
)

// maxQuestionLen caps the length of question strings.
const maxQuestionLen = 2000

// AskHandler serves the question answering endpoint.
type AskHandler struct {
	svc AskRunner
	log *logrus.Logger
}

// NewAskHandler creates an AskHandler with the given service and logger.
func NewAskHandler(svc AskRunner, log *logrus.Logger) *AskHandler {
	return &AskHandler{svc: svc, log: log}
}

// Ask handles POST /api/v1/ask.
func (h *AskHandler) Ask(c *gin.Context) {
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())

		return
	}

	if len(req.Question) > maxQuestionLen {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "question exceeds maximum length")

		return
	}

	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	answer, err := h.svc.Ask(c.Request.Context(), tenantID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingQuestion):
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		case errors.Is(err, translate.ErrTranslationUnavailable):
			h.log.WithError(err).Error("question translation")
			respondError(c, http.StatusBadGateway, ErrCodeInternalError, "translation service unavailable")
		default:
			h.log.WithError(err).Error("answering question")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":    "ask",
		"tenant_id": tenantID,
		"intent":    answer.Intent,
		"total":     answer.Total,
		"cache_hit": answer.CacheHit,
	}).Info("audit")

	c.JSON(http.StatusOK, answer)
}
