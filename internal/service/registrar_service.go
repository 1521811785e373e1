package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
	"github.com/noah-isme/uni-registrar-api/internal/gpa"
	"github.com/noah-isme/uni-registrar-api/internal/pipeline"
	"github.com/noah-isme/uni-registrar-api/internal/query"
)

type studentLoader interface {
	Load(ctx context.Context, id string) (*domain.Student, error)
}

// GPAReport is the response shape for the GPA query. A nil GPA means the
// student has no grades counting toward GPA, which is distinct from 0.0.
type GPAReport struct {
	StudentID     string            `json:"student_id"`
	CumulativeGPA *string           `json:"cumulative_gpa"`
	TermGPAs      map[string]string `json:"term_gpas,omitempty"`
	GradedCredits int               `json:"graded_credits"`
}

// RegistrarService exposes one function per command and query type. It
// is the seam the transport layer calls into.
type RegistrarService struct {
	pipeline *pipeline.Pipeline
	queries  *query.Processor
	students studentLoader
	logger   *zap.Logger
}

// NewRegistrarService constructs the service.
func NewRegistrarService(p *pipeline.Pipeline, queries *query.Processor, students studentLoader, logger *zap.Logger) *RegistrarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrarService{pipeline: p, queries: queries, students: students, logger: logger}
}

// Enroll registers a student into a course offering.
func (s *RegistrarService) Enroll(ctx context.Context, cmd pipeline.EnrollStudentCommand) (*pipeline.EnrollResult, error) {
	return s.pipeline.EnrollStudent(ctx, cmd)
}

// AssignGrade records a grade on an enrollment.
func (s *RegistrarService) AssignGrade(ctx context.Context, cmd pipeline.AssignGradeCommand) (*pipeline.AssignGradeResult, error) {
	return s.pipeline.AssignGrade(ctx, cmd)
}

// Withdraw removes a student from an active enrollment.
func (s *RegistrarService) Withdraw(ctx context.Context, cmd pipeline.WithdrawCommand) (*pipeline.WithdrawResult, error) {
	return s.pipeline.Withdraw(ctx, cmd)
}

// ListEnrollments serves the paginated enrollment projection.
func (s *RegistrarService) ListEnrollments(ctx context.Context, q query.EnrollmentQuery) (*query.PagedResult[query.EnrollmentView], error) {
	return s.queries.Enrollments(ctx, q)
}

// StudentGPA computes cumulative and per-term GPA from the student's
// academic record.
func (s *RegistrarService) StudentGPA(ctx context.Context, studentID string) (*GPAReport, error) {
	student, err := s.students.Load(ctx, studentID)
	if err != nil {
		return nil, err
	}

	records := student.AcademicRecord()
	report := &GPAReport{StudentID: studentID}

	if cumulative := gpa.ComputeCumulativeGPA(records); cumulative != nil {
		value := cumulative.StringFixed(gpa.Precision)
		report.CumulativeGPA = &value
	}

	terms := make(map[string]struct{})
	for _, record := range records {
		if record.Grade != nil && record.Grade.CountsTowardGPA() {
			report.GradedCredits += record.CreditHours
			terms[record.Term] = struct{}{}
		}
	}
	if len(terms) > 0 {
		report.TermGPAs = make(map[string]string, len(terms))
		for term := range terms {
			if termGPA := gpa.ComputeTermGPA(records, term); termGPA != nil {
				report.TermGPAs[term] = termGPA.StringFixed(gpa.Precision)
			}
		}
	}
	return report, nil
}
