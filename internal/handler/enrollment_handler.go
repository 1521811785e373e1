package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registrar-api/internal/pipeline"
	"github.com/noah-isme/uni-registrar-api/internal/query"
	"github.com/noah-isme/uni-registrar-api/internal/service"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
	"github.com/noah-isme/uni-registrar-api/pkg/response"
)

// IdempotencyKeyHeader carries the caller-supplied replay token.
const IdempotencyKeyHeader = "Idempotency-Key"

// EnrollmentHandler exposes the enrollment command and query endpoints.
type EnrollmentHandler struct {
	registrar *service.RegistrarService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(registrar *service.RegistrarService) *EnrollmentHandler {
	return &EnrollmentHandler{registrar: registrar}
}

// List returns the paginated enrollment projection.
func (h *EnrollmentHandler) List(c *gin.Context) {
	var q query.EnrollmentQuery
	q.StudentID = c.Query("studentId")
	q.CourseID = c.Query("courseId")
	q.Term = c.Query("term")
	q.Status = strings.ToUpper(c.Query("status"))
	if raw := c.Query("enrolledFrom"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enrolledFrom: expected RFC3339 timestamp"))
			return
		}
		q.EnrolledFrom = &from
	}
	if raw := c.Query("enrolledTo"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enrolledTo: expected RFC3339 timestamp"))
			return
		}
		q.EnrolledTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		q.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		q.PageSize = size
	}
	q.SortBy = c.Query("sort")
	q.SortOrder = c.Query("order")

	result, err := h.registrar.ListEnrollments(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Create enrolls a student into a course offering.
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var cmd pipeline.EnrollStudentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cmd.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	result, err := h.registrar.Enroll(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// AssignGrade records a grade on an enrollment.
func (h *EnrollmentHandler) AssignGrade(c *gin.Context) {
	var cmd pipeline.AssignGradeCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cmd.EnrollmentID = c.Param("id")
	cmd.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	result, err := h.registrar.AssignGrade(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Withdraw removes a student from an active enrollment.
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	var cmd pipeline.WithdrawCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cmd.EnrollmentID = c.Param("id")
	cmd.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	result, err := h.registrar.Withdraw(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
