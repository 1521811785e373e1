package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

type stubLoader struct {
	students map[string]*domain.Student
}

func (s *stubLoader) Load(_ context.Context, id string) (*domain.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

func gradedEnrollment(id, courseID, term string, credits int, grade domain.Grade) *domain.Enrollment {
	return &domain.Enrollment{
		ID:          id,
		StudentID:   "s1",
		CourseID:    courseID,
		Term:        term,
		CreditHours: credits,
		Status:      domain.EnrollmentStatusCompleted,
		Grade:       &grade,
		EnrolledAt:  time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestStudentGPAReport(t *testing.T) {
	student := domain.RehydrateStudent("s1", domain.StudentStatusActive, 1, []*domain.Enrollment{
		gradedEnrollment("e1", "c1", "FALL2024", 3, domain.GradeA),
		gradedEnrollment("e2", "c2", "FALL2024", 3, domain.GradeB),
		gradedEnrollment("e3", "c3", "SPRING2025", 4, domain.GradeC),
		gradedEnrollment("e4", "c4", "SPRING2025", 3, domain.GradePass),
	})
	svc := NewRegistrarService(nil, nil, &stubLoader{students: map[string]*domain.Student{"s1": student}}, nil)

	report, err := svc.StudentGPA(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, report.CumulativeGPA)
	// (4.0*3 + 3.0*3 + 2.0*4) / 10 = 2.9; the Pass mark is excluded.
	assert.Equal(t, "2.900", *report.CumulativeGPA)
	assert.Equal(t, 10, report.GradedCredits)
	assert.Equal(t, "3.500", report.TermGPAs["FALL2024"])
	assert.Equal(t, "2.000", report.TermGPAs["SPRING2025"])
}

func TestStudentGPAReportNoGrades(t *testing.T) {
	student := domain.RehydrateStudent("s1", domain.StudentStatusActive, 1, []*domain.Enrollment{
		gradedEnrollment("e1", "c1", "FALL2024", 3, domain.GradeIncomplete),
	})
	svc := NewRegistrarService(nil, nil, &stubLoader{students: map[string]*domain.Student{"s1": student}}, nil)

	report, err := svc.StudentGPA(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, report.CumulativeGPA)
	assert.Zero(t, report.GradedCredits)
	assert.Empty(t, report.TermGPAs)
}

func TestStudentGPAReportUnknownStudent(t *testing.T) {
	svc := NewRegistrarService(nil, nil, &stubLoader{students: nil}, nil)

	_, err := svc.StudentGPA(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
