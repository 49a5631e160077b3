package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/insighted/schoolprofile/internal/errors"
	"github.com/insighted/schoolprofile/internal/middleware"
	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/services"
)

const profileNotFoundMessage = "No profile has been submitted for this school"

// ProfileHandler handles school profile requests.
type ProfileHandler struct {
	service services.ProfileService
}

// NewProfileHandler creates a new ProfileHandler instance.
func NewProfileHandler(service services.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// ExistsResponse tells the form whether to render locked.
type ExistsResponse struct {
	SchoolID string `json:"school_id"`
	Exists   bool   `json:"exists"`
}

// ProfileResponse represents the response for profile endpoints.
type ProfileResponse struct {
	Profile *ProfileData `json:"profile"`
}

// ProfileData is the stored profile plus its location as a GeoJSON point.
// A submitted profile is always locked.
type ProfileData struct {
	*models.Profile
	Location *models.Point `json:"location"`
	Locked   bool          `json:"locked"`
}

func mapProfileToDTO(p *models.Profile) *ProfileData {
	if p == nil {
		return nil
	}
	return &ProfileData{
		Profile:  p,
		Location: p.Location(),
		Locked:   true,
	}
}

// Exists handles GET /api/v1/schools/:schoolId/exists.
func (h *ProfileHandler) Exists(c *gin.Context) {
	schoolID := c.Param("schoolId")

	exists, err := h.service.CheckExists(c.Request.Context(), schoolID)
	if err != nil {
		respondError(c, err, profileNotFoundMessage)
		return
	}

	c.JSON(http.StatusOK, ExistsResponse{SchoolID: schoolID, Exists: exists})
}

// Get handles GET /api/v1/schools/:schoolId.
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.service.GetProfile(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		respondError(c, err, profileNotFoundMessage)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Profile: mapProfileToDTO(p)})
}

// BySubmitter handles GET /api/v1/submitters/:submitterId/school.
func (h *ProfileHandler) BySubmitter(c *gin.Context) {
	p, err := h.service.GetBySubmitter(c.Request.Context(), c.Param("submitterId"))
	if err != nil {
		respondError(c, err, "This user has not submitted a school profile")
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Profile: mapProfileToDTO(p)})
}

// Submit handles PUT /api/v1/schools/:schoolId.
// It responds 201 on the first submission and 200 on later amendments.
func (h *ProfileHandler) Submit(c *gin.Context) {
	schoolID := c.Param("schoolId")

	var fields models.ProfileFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		bindError(c, err, "Invalid request body")
		return
	}
	if fields.SchoolID != "" && fields.SchoolID != schoolID {
		apierrors.BadRequest(c, "school_id in the body does not match the URL", map[string]interface{}{
			"school_id": fields.SchoolID,
		})
		return
	}
	fields.SchoolID = schoolID

	submitter := middleware.GetSubmitter(c)
	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing profile submission", map[string]interface{}{
			"school_id": schoolID,
		})
	}

	p, err := h.service.SubmitOrAmend(c.Request.Context(), fields, submitter)
	if err != nil {
		respondError(c, err, profileNotFoundMessage)
		return
	}

	status := http.StatusOK
	if len(p.History) == 1 {
		status = http.StatusCreated
	}
	c.JSON(status, ProfileResponse{Profile: mapProfileToDTO(p)})
}

// AmendEnrollment handles PATCH /api/v1/schools/:schoolId/enrollment.
// Fields omitted from the body are left unchanged.
func (h *ProfileHandler) AmendEnrollment(c *gin.Context) {
	var patch models.Enrollment
	if err := c.ShouldBindJSON(&patch); err != nil {
		bindError(c, err, "Invalid request body")
		return
	}

	p, err := h.service.AmendEnrollment(c.Request.Context(), c.Param("schoolId"), patch, middleware.GetSubmitter(c))
	if err != nil {
		respondError(c, err, profileNotFoundMessage)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Profile: mapProfileToDTO(p)})
}
