package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-api/internal/dispatch"
	"github.com/noah-isme/enrollment-api/internal/middleware"
	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/service"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
	"github.com/noah-isme/enrollment-api/pkg/export"
	"github.com/noah-isme/enrollment-api/pkg/response"
)

// StudentHandler translates student endpoints into mediator messages.
type StudentHandler struct {
	mediator *dispatch.Mediator
	exports  *service.ExportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(mediator *dispatch.Mediator, exports *service.ExportService) *StudentHandler {
	return &StudentHandler{mediator: mediator, exports: exports}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param enrolled query string false "Exact course name the student is enrolled in"
// @Param number query int false "Exact number of active enrollments"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	query, err := listQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	students, err := dispatch.DispatchQuery[[]models.StudentSummary](c.Request.Context(), h.mediator, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(students))
	response.JSON(c, http.StatusOK, students, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the student list
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param enrolled query string false "Exact course name the student is enrolled in"
// @Param number query int false "Exact number of active enrollments"
// @Success 200 {file} file
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unsupported export format"))
		return
	}
	query, err := listQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	students, err := dispatch.DispatchQuery[[]models.StudentSummary](c.Request.Context(), h.mediator, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.ExportStudents(format, students)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := dispatch.DispatchQuery[models.StudentDetail](c.Request.Context(), h.mediator, service.GetStudentQuery{StudentID: id})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Register godoc
// @Summary Register a student
// @Description Creates the student and enrolls it in each course slot whose course and grade are both given.
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.RegisterCommand true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var cmd service.RegisterCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	id, err := dispatch.DispatchCommandResult[int64](c.Request.Context(), h.mediator, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}

	student, err := dispatch.DispatchQuery[models.StudentDetail](c.Request.Context(), h.mediator, service.GetStudentQuery{StudentID: id})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("%s/%d", strings.TrimSuffix(c.FullPath(), "/"), id))
	response.Created(c, student)
}

// Unregister godoc
// @Summary Unregister a student
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Unregister(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.mediator.DispatchCommand(c.Request.Context(), service.UnregisterCommand{StudentID: id}); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EditPersonalInfo godoc
// @Summary Edit name and email
// @Tags Students
// @Accept json
// @Param id path int true "Student ID"
// @Param payload body service.EditPersonalInfoCommand true "Personal info"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) EditPersonalInfo(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var cmd service.EditPersonalInfoCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	cmd.StudentID = id
	h.dispatch(c, cmd)
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Enrollments
// @Accept json
// @Param id path int true "Student ID"
// @Param payload body service.EnrollCommand true "Course and grade"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/enrollments [post]
func (h *StudentHandler) Enroll(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var cmd service.EnrollCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	cmd.StudentID = id
	h.dispatch(c, cmd)
}

// Transfer godoc
// @Summary Transfer an enrollment
// @Tags Enrollments
// @Accept json
// @Param id path int true "Student ID"
// @Param number path int true "Zero-based enrollment number"
// @Param payload body service.TransferCommand true "New course and grade"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/enrollments/{number} [put]
func (h *StudentHandler) Transfer(c *gin.Context) {
	id, number, err := enrollmentRef(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var cmd service.TransferCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	cmd.StudentID, cmd.EnrollmentNumber = id, number
	h.dispatch(c, cmd)
}

// Disenroll godoc
// @Summary Disenroll from a course
// @Tags Enrollments
// @Accept json
// @Param id path int true "Student ID"
// @Param number path int true "Zero-based enrollment number"
// @Param payload body service.DisenrollCommand true "Disenrollment comment"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/enrollments/{number}/deletion [post]
func (h *StudentHandler) Disenroll(c *gin.Context) {
	id, number, err := enrollmentRef(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var cmd service.DisenrollCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	cmd.StudentID, cmd.EnrollmentNumber = id, number
	h.dispatch(c, cmd)
}

func (h *StudentHandler) dispatch(c *gin.Context, cmd dispatch.Message) {
	if err := h.mediator.DispatchCommand(c.Request.Context(), cmd); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func listQuery(c *gin.Context) (service.GetListQuery, error) {
	var q service.GetListQuery
	if enrolled, ok := c.GetQuery("enrolled"); ok && enrolled != "" {
		q.EnrolledIn = &enrolled
	}
	if raw, ok := c.GetQuery("number"); ok && raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil {
			return q, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("number must be an integer: '%s'", raw))
		}
		q.NumberOfCourses = &number
	}
	return q, nil
}

func studentID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid student id: '%s'", raw))
	}
	return id, nil
}

func enrollmentRef(c *gin.Context) (int64, int, error) {
	id, err := studentID(c)
	if err != nil {
		return 0, 0, err
	}
	raw := c.Param("number")
	number, err := strconv.Atoi(raw)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid enrollment number: '%s'", raw))
	}
	return id, number, nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}
