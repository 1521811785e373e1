package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/query"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
	"github.com/noah-isme/uni-registrar-api/pkg/export"
)

// Supported transcript formats.
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type gpaReporter interface {
	StudentGPA(ctx context.Context, studentID string) (*GPAReport, error)
}

type transcriptFormat struct {
	renderer    renderer
	contentType string
}

// TranscriptService assembles a student's academic history into a
// downloadable document.
type TranscriptService struct {
	queries *query.Processor
	gpas    gpaReporter
	formats map[string]transcriptFormat
	footer  string
	logger  *zap.Logger
}

// NewTranscriptService constructs the service.
func NewTranscriptService(queries *query.Processor, gpas gpaReporter, pdf, csv renderer, footer string, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	formats := map[string]transcriptFormat{}
	if pdf != nil {
		formats[FormatPDF] = transcriptFormat{renderer: pdf, contentType: "application/pdf"}
	}
	if csv != nil {
		formats[FormatCSV] = transcriptFormat{renderer: csv, contentType: "text/csv"}
	}
	return &TranscriptService{queries: queries, gpas: gpas, formats: formats, footer: footer, logger: logger}
}

// Render produces the transcript for a student in the requested format
// and returns the document bytes with their content type. The enrollment
// rows come from the read projection; the GPA from the academic record.
func (s *TranscriptService) Render(ctx context.Context, studentID, format string) ([]byte, string, error) {
	target, ok := s.formats[format]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported transcript format: %s", format))
	}

	report, err := s.gpas.StudentGPA(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	rows, err := s.collectRows(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	gpaLine := "no GPA"
	if report.CumulativeGPA != nil {
		gpaLine = *report.CumulativeGPA
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Academic Transcript - %s", studentID),
		Footer:  fmt.Sprintf("Cumulative GPA: %s. %s", gpaLine, s.footer),
		Headers: []string{"Term", "Course", "Title", "Credits", "Status", "Grade", "Date"},
		Rows:    rows,
	}

	rendered, err := target.renderer.Render(data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return rendered, target.contentType, nil
}

func (s *TranscriptService) collectRows(ctx context.Context, studentID string) ([]map[string]string, error) {
	var rows []map[string]string
	page := 1
	for {
		result, err := s.queries.Enrollments(ctx, query.EnrollmentQuery{
			StudentID: studentID,
			SortBy:    "enrolled_at",
			SortOrder: "asc",
			Page:      page,
			PageSize:  query.MaxPageSize,
		})
		if err != nil {
			return nil, err
		}
		for _, view := range result.Items {
			grade := ""
			if view.Grade != nil {
				grade = *view.Grade
			}
			rows = append(rows, map[string]string{
				"Term":    view.Term,
				"Course":  view.CourseCode,
				"Title":   view.CourseTitle,
				"Credits": fmt.Sprintf("%d", view.CreditHours),
				"Status":  view.Status,
				"Grade":   grade,
				"Date":    view.EnrolledAt.Format(time.DateOnly),
			})
		}
		if !result.HasNextPage {
			break
		}
		page++
	}
	return rows, nil
}
