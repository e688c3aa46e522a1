package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/models"
)

// CanonicalHandler serves canonical field mapping endpoints.
type CanonicalHandler struct {
	repo CanonicalRepository
	log  *logrus.Logger
}

// NewCanonicalHandler creates a CanonicalHandler with the given repository and logger.
func NewCanonicalHandler(repo CanonicalRepository, log *logrus.Logger) *CanonicalHandler {
	return &CanonicalHandler{repo: repo, log: log}
}

// List handles GET /api/v1/canonical-fields.
func (h *CanonicalHandler) List(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	mappings, err := h.repo.List(c.Request.Context(), tenantID)
	if err != nil {
		h.log.WithError(err).Error("listing canonical fields")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"canonical_fields": mappings, "total": len(mappings)})
}

// Create handles POST /api/v1/canonical-fields.
func (h *CanonicalHandler) Create(c *gin.Context) {
	var req models.CreateCanonicalFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())

		return
	}

	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	created, err := h.repo.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.respondMappingError(c, err, "creating canonical field")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":         "canonical.create",
		"tenant_id":      tenantID,
		"canonical_name": created.CanonicalName,
	}).Info("audit")

	c.JSON(http.StatusCreated, created)
}

// Update handles PUT /api/v1/canonical-fields/:id.
func (h *CanonicalHandler) Update(c *gin.Context) {
	var req models.UpdateCanonicalFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())

		return
	}

	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	updated, err := h.repo.Update(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		h.respondMappingError(c, err, "updating canonical field")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":         "canonical.update",
		"tenant_id":      tenantID,
		"canonical_name": updated.CanonicalName,
	}).Info("audit")

	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/canonical-fields/:id.
func (h *CanonicalHandler) Delete(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		h.respondMappingError(c, err, "deleting canonical field")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":    "canonical.delete",
		"tenant_id": tenantID,
		"id":        c.Param("id"),
	}).Info("audit")

	c.Status(http.StatusNoContent)
}

// Refresh handles POST /api/v1/canonical-fields/refresh. It reloads the
// tenant's registry from storage synchronously, so the next resolution sees
// out-of-band changes.
func (h *CanonicalHandler) Refresh(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	if err := h.repo.Refresh(c.Request.Context(), tenantID); err != nil {
		h.log.WithError(err).Error("refreshing canonical fields")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// respondMappingError maps canonical mapping errors onto HTTP statuses.
func (h *CanonicalHandler) respondMappingError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, models.ErrMappingNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "canonical field mapping not found")
	case errors.Is(err, models.ErrSystemMapping):
		respondError(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, models.ErrNameTaken), errors.Is(err, models.ErrDuplicateKey):
		respondError(c, http.StatusConflict, ErrCodeConflict, "canonical name or alias already in use")
	case errors.Is(err, models.ErrMissingCanonicalName),
		errors.Is(err, models.ErrMissingFieldMappings),
		errors.Is(err, models.ErrEmptyFieldMapping),
		errors.Is(err, models.ErrEmptyAlias),
		errors.Is(err, models.ErrMissingAggregationType):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	default:
		h.log.WithError(err).Error(action)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
