package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apierrors "github.com/insighted/schoolprofile/internal/errors"
	"github.com/insighted/schoolprofile/internal/middleware"
	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/reference"
	"github.com/insighted/schoolprofile/internal/services"
)

// ReferenceHandler serves the location picker lookups.
type ReferenceHandler struct {
	service services.ReferenceService
}

// NewReferenceHandler creates a new ReferenceHandler instance.
func NewReferenceHandler(service services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

// OptionsRequest represents the query parameters for the options endpoint.
// Parents irrelevant to the level are ignored.
type OptionsRequest struct {
	Level        string `form:"level" binding:"required"`
	Region       string `form:"region"`
	Province     string `form:"province"`
	Municipality string `form:"municipality"`
	Division     string `form:"division"`
}

// ResolveRequest represents the query parameters for the resolve endpoint.
type ResolveRequest struct {
	ID   string `form:"id"`
	Name string `form:"name"`
}

// OptionsResponse lists the options of one level.
type OptionsResponse struct {
	Level   string   `json:"level"`
	Options []string `json:"options"`
	Count   int      `json:"count"`
}

// CandidateResponse wraps a resolved reference candidate.
type CandidateResponse struct {
	Candidate *models.ResolvedCandidate `json:"candidate"`
}

// HierarchyResponse wraps a normalized hierarchy.
type HierarchyResponse struct {
	Hierarchy models.Hierarchy `json:"hierarchy"`
}

// StatusResponse wraps the reference loader state.
type StatusResponse struct {
	Status reference.Status `json:"status"`
}

// Options handles GET /api/v1/reference/options.
func (h *ReferenceHandler) Options(c *gin.Context) {
	var req OptionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err, "Invalid query parameters")
		return
	}

	parents := models.Hierarchy{
		Region:       req.Region,
		Province:     req.Province,
		Municipality: req.Municipality,
		Division:     req.Division,
	}
	options, err := h.service.Options(c.Request.Context(), req.Level, parents)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, OptionsResponse{
		Level:   req.Level,
		Options: options,
		Count:   len(options),
	})
}

// Districts handles GET /api/v1/reference/divisions/:division/districts.
func (h *ReferenceHandler) Districts(c *gin.Context) {
	division := c.Param("division")

	districts, err := h.service.DistrictsOf(c.Request.Context(), division)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, OptionsResponse{
		Level:   string(models.LevelDistrict),
		Options: districts,
		Count:   len(districts),
	})
}

// Resolve handles GET /api/v1/reference/resolve?id= or ?name=.
// The id wins when both are given.
func (h *ReferenceHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err, "Invalid query parameters")
		return
	}

	var (
		candidate *models.ResolvedCandidate
		err       error
	)
	switch {
	case strings.TrimSpace(req.ID) != "":
		candidate, err = h.service.ResolveByID(c.Request.Context(), req.ID)
	case strings.TrimSpace(req.Name) != "":
		candidate, err = h.service.ResolveByName(c.Request.Context(), req.Name)
	default:
		apierrors.BadRequest(c, "Either id or name is required", nil)
		return
	}
	if err != nil {
		respondError(c, err, "No school in the reference data matches this query")
		return
	}

	c.JSON(http.StatusOK, CandidateResponse{Candidate: candidate})
}

// Normalize handles POST /api/v1/reference/normalize.
func (h *ReferenceHandler) Normalize(c *gin.Context) {
	var raw models.Hierarchy
	if err := c.ShouldBindJSON(&raw); err != nil {
		bindError(c, err, "Invalid request body")
		return
	}

	normalized, err := h.service.Normalize(c.Request.Context(), raw)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, HierarchyResponse{Hierarchy: normalized})
}

// Status handles GET /api/v1/reference/status.
func (h *ReferenceHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: h.service.Status()})
}

// Reload handles POST /api/v1/reference/reload.
func (h *ReferenceHandler) Reload(c *gin.Context) {
	st, err := h.service.Reload(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Reference dataset reloaded", map[string]interface{}{
			"rows":    st.Rows,
			"schools": st.Schools,
		})
	}
	c.JSON(http.StatusOK, StatusResponse{Status: st})
}
