package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registrar-api/internal/service"
	"github.com/noah-isme/uni-registrar-api/pkg/response"
)

// StudentHandler exposes student read endpoints.
type StudentHandler struct {
	registrar   *service.RegistrarService
	transcripts *service.TranscriptService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(registrar *service.RegistrarService, transcripts *service.TranscriptService) *StudentHandler {
	return &StudentHandler{registrar: registrar, transcripts: transcripts}
}

// GPA returns the student's cumulative and per-term GPA.
func (h *StudentHandler) GPA(c *gin.Context) {
	report, err := h.registrar.StudentGPA(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Transcript streams the student's transcript. The format query
// parameter selects pdf (default) or csv.
func (h *StudentHandler) Transcript(c *gin.Context) {
	studentID := c.Param("id")
	format := c.DefaultQuery("format", service.FormatPDF)
	rendered, contentType, err := h.transcripts.Render(c.Request.Context(), studentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=transcript-%s.%s", studentID, format))
	c.Data(http.StatusOK, contentType, rendered)
}
