package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/services"
)

// RestAccompanistHandler serves public accompanist profiles.
type RestAccompanistHandler struct {
	accompanistService services.IAccompanistService
}

// NewRestAccompanistHandler creates a new RestAccompanistHandler.
func NewRestAccompanistHandler(accompanistService services.IAccompanistService) *RestAccompanistHandler {
	return &RestAccompanistHandler{accompanistService: accompanistService}
}

// GetAccompanist handles GET /v1/accompanist/:uid
func (h *RestAccompanistHandler) GetAccompanist(c *gin.Context) {
	uid := strings.TrimSpace(c.Param("uid"))
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}

	profile, err := h.accompanistService.GetPublicProfile(c.Request.Context(), uid)
	if err != nil {
		writeRestError(c, "GetAccompanist", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListAccompanists handles GET /v1/accompanist?region=&purpose=&specialty=
func (h *RestAccompanistHandler) ListAccompanists(c *gin.Context) {
	filter := models.ProfileFilter{
		Region:    strings.TrimSpace(c.Query("region")),
		Purpose:   strings.TrimSpace(c.Query("purpose")),
		Specialty: strings.TrimSpace(c.Query("specialty")),
	}

	profiles, err := h.accompanistService.ListPublicProfiles(c.Request.Context(), filter)
	if err != nil {
		writeRestError(c, "ListAccompanists", err)
		return
	}
	if profiles == nil {
		profiles = []models.AccompanistProfile{}
	}
	c.JSON(http.StatusOK, gin.H{"accompanists": profiles})
}

func writeRestError(c *gin.Context, op string, err error) {
	apiErr := fromError(op, err)
	status := http.StatusInternalServerError
	switch apiErr.Code {
	case apperr.CodeInvalidArgument:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodePermissionDenied:
		status = http.StatusForbidden
	case apperr.CodeUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.CodeFailedPrecondition:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
}
