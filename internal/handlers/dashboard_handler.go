package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/services"
)

// DashboardHandler serves the activity feed and admin projections.
type DashboardHandler struct {
	service services.ProfileService
}

// NewDashboardHandler creates a new DashboardHandler instance.
func NewDashboardHandler(service services.ProfileService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// ActivityRequest represents the query parameters for the activity feed.
// A missing limit means the full page.
type ActivityRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// ActivityResponse lists recent history entries across schools.
type ActivityResponse struct {
	Activities []models.ActivityEntry `json:"activities"`
	Count      int                    `json:"count"`
}

// SchoolsResponse lists submitted profiles.
type SchoolsResponse struct {
	Schools []models.ProfileSummary `json:"schools"`
	Count   int                     `json:"count"`
}

// ProjectStatsResponse wraps the project statistics.
type ProjectStatsResponse struct {
	Stats models.ProjectStats `json:"stats"`
}

// Activities handles GET /api/v1/activities.
func (h *DashboardHandler) Activities(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err, "Invalid query parameters")
		return
	}

	entries, err := h.service.RecentActivity(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if entries == nil {
		entries = []models.ActivityEntry{}
	}

	c.JSON(http.StatusOK, ActivityResponse{Activities: entries, Count: len(entries)})
}

// Schools handles GET /api/v1/dashboard/schools.
func (h *DashboardHandler) Schools(c *gin.Context) {
	summaries, err := h.service.ListSummaries(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	if summaries == nil {
		summaries = []models.ProfileSummary{}
	}

	c.JSON(http.StatusOK, SchoolsResponse{Schools: summaries, Count: len(summaries)})
}

// Projects handles GET /api/v1/dashboard/projects.
func (h *DashboardHandler) Projects(c *gin.Context) {
	stats, err := h.service.ProjectStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, ProjectStatsResponse{Stats: stats})
}
