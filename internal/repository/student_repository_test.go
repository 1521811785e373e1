package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
	"github.com/noah-isme/uni-registrar-api/pkg/clock"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

var sampleTime = time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)

func offeringFixture(id string, enrolled int, version int64) *domain.CourseOffering {
	return &domain.CourseOffering{ID: id, CourseID: "c1", Term: "FALL2024", Capacity: 30, Enrolled: enrolled, Version: version}
}

func TestStudentLoadRehydratesHistory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db, clock.Fixed(sampleTime))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, version FROM students WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "version"}).AddRow("s1", "ACTIVE", int64(7)))

	enrollmentCols := []string{"id", "student_id", "course_id", "offering_id", "term", "credit_hours", "status", "grade", "enrolled_at", "updated_at"}
	mock.ExpectQuery("SELECT id, student_id, course_id, offering_id").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow("e1", "s1", "c1", "o1", "SPRING2024", 3, "COMPLETED", "A-", sampleTime.Add(-time.Hour), sampleTime).
			AddRow("e2", "s1", "c2", "o2", "FALL2024", 4, "ACTIVE", nil, sampleTime, sampleTime))

	student, err := repo.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StudentStatusActive, student.Status())
	assert.Equal(t, int64(7), student.Version())

	enrollments := student.Enrollments()
	require.Len(t, enrollments, 2)
	require.NotNil(t, enrollments[0].Grade)
	assert.Equal(t, domain.GradeAMinus, *enrollments[0].Grade)
	assert.Nil(t, enrollments[1].Grade)
	assert.Equal(t, 4, student.TermCreditHours("FALL2024"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLoadNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db, clock.Fixed(sampleTime))

	mock.ExpectQuery("SELECT id, status, version FROM students").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentSaveUpsertsEnrollments(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db, clock.Fixed(sampleTime))

	grade := domain.GradeB
	student := domain.RehydrateStudent("s1", domain.StudentStatusActive, 7, []*domain.Enrollment{
		{ID: "e1", StudentID: "s1", CourseID: "c1", OfferingID: "o1", Term: "SPRING2024", CreditHours: 3,
			Status: domain.EnrollmentStatusCompleted, Grade: &grade, EnrolledAt: sampleTime.Add(-time.Hour), UpdatedAt: sampleTime},
		{ID: "e2", StudentID: "s1", CourseID: "c2", OfferingID: "o2", Term: "FALL2024", CreditHours: 4,
			Status: domain.EnrollmentStatusActive, EnrolledAt: sampleTime, UpdatedAt: sampleTime},
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, version = version + 1, updated_at = $3 WHERE id = $1 AND version = $4")).
		WithArgs("s1", domain.StudentStatusActive, sampleTime, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs("e1", "s1", "c1", "o1", "SPRING2024", 3, domain.EnrollmentStatusCompleted, sqlmock.AnyArg(), sampleTime.Add(-time.Hour), sampleTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs("e2", "s1", "c2", "o2", "FALL2024", 4, domain.EnrollmentStatusActive, sqlmock.AnyArg(), sampleTime, sampleTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), student, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentSaveVersionConflictRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db, clock.Fixed(sampleTime))

	student := domain.RehydrateStudent("s1", domain.StudentStatusActive, 7, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET status").
		WithArgs("s1", domain.StudentStatusActive, sampleTime, int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), student, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrVersionConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}
