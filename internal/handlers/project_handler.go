package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/insighted/schoolprofile/internal/errors"
	"github.com/insighted/schoolprofile/internal/middleware"
	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/services"
)

// ProjectHandler handles school infrastructure project requests.
type ProjectHandler struct {
	service services.ProfileService
}

// NewProjectHandler creates a new ProjectHandler instance.
func NewProjectHandler(service services.ProfileService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// ProjectResponse wraps one project.
type ProjectResponse struct {
	Project *models.Project `json:"project"`
}

// ProjectListResponse lists the projects of a school.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects"`
	Count    int              `json:"count"`
}

// List handles GET /api/v1/schools/:schoolId/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.service.ListProjects(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		respondError(c, err, profileNotFoundMessage)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}

	c.JSON(http.StatusOK, ProjectListResponse{Projects: projects, Count: len(projects)})
}

// Create handles POST /api/v1/schools/:schoolId/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		bindError(c, err, "Invalid request body")
		return
	}
	submitter := middleware.GetSubmitter(c)
	if project.EngineerID == "" {
		project.EngineerID = submitter
	}

	created, err := h.service.CreateProject(c.Request.Context(), c.Param("schoolId"), project, submitter)
	if err != nil {
		respondError(c, err, profileNotFoundMessage)
		return
	}

	c.JSON(http.StatusCreated, ProjectResponse{Project: created})
}

// Update handles PATCH /api/v1/schools/:schoolId/projects/:projectId.
func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		apierrors.BadRequest(c, "projectId must be a valid UUID", nil)
		return
	}

	var update services.ProjectUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		bindError(c, err, "Invalid request body")
		return
	}

	updated, err := h.service.UpdateProject(c.Request.Context(), c.Param("schoolId"), projectID, update, middleware.GetSubmitter(c))
	if err != nil {
		respondError(c, err, "No such project for this school")
		return
	}

	c.JSON(http.StatusOK, ProjectResponse{Project: updated})
}
