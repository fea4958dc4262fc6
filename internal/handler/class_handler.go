package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	"github.com/classtrackhq/classtrack-api/internal/service"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
	"github.com/classtrackhq/classtrack-api/pkg/response"
)

// ClassHandler exposes class section endpoints, including session
// generation.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List class sections
// @Tags Classes
// @Produce json
// @Param semester_id query string false "Filter by semester"
// @Param course_id query string false "Filter by course"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	filter.SemesterID = c.Query("semester_id")
	filter.CourseID = c.Query("course_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	classes, total, err := h.service.List(c.Request.Context(), filter, scopeFor(c, access.EntityClass))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Open class section
// @Description Creates a section and generates its calendar sessions
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassInput true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var input service.CreateClassInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// UpdateSchedule godoc
// @Summary Update class schedule
// @Description Replaces the weekly schedule and regenerates future sessions
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.Schedule true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/schedule [put]
func (h *ClassHandler) UpdateSchedule(c *gin.Context) {
	var schedule models.Schedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	sessions, err := h.service.UpdateSchedule(c.Request.Context(), c.Param("id"), schedule)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil, map[string]interface{}{
		"generated_sessions": len(sessions),
	})
}

// RegenerateSessions godoc
// @Summary Regenerate class sessions
// @Description Rebuilds the session calendar; fails once attendance exists
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/sessions/generate [post]
func (h *ClassHandler) RegenerateSessions(c *gin.Context) {
	sessions, err := h.service.RegenerateSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil, map[string]interface{}{
		"generated_sessions": len(sessions),
	})
}

// Delete godoc
// @Summary Delete class section
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAssistants godoc
// @Summary List class assistants
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/assistants [get]
func (h *ClassHandler) ListAssistants(c *gin.Context) {
	assistants, err := h.service.ListAssistants(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assistants, nil)
}

// AddAssistant godoc
// @Summary Assign teaching assistant
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body map[string]string true "User ID"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/assistants [post]
func (h *ClassHandler) AddAssistant(c *gin.Context) {
	var payload struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "user_id required"))
		return
	}
	if err := h.service.AddAssistant(c.Request.Context(), c.Param("id"), payload.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"class_id": c.Param("id"), "user_id": payload.UserID})
}
