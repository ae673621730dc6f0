package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-api/internal/dispatch"
	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/service"
	"github.com/noah-isme/enrollment-api/pkg/response"
)

// CourseHandler exposes the course catalogue.
type CourseHandler struct {
	mediator *dispatch.Mediator
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(mediator *dispatch.Mediator) *CourseHandler {
	return &CourseHandler{mediator: mediator}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := dispatch.DispatchQuery[[]models.Course](c.Request.Context(), h.mediator, service.ListCoursesQuery{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}
