package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
	"github.com/noah-isme/uni-registrar-api/pkg/clock"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

type studentRow struct {
	ID      string               `db:"id"`
	Status  domain.StudentStatus `db:"status"`
	Version int64                `db:"version"`
}

type enrollmentRow struct {
	ID          string                  `db:"id"`
	StudentID   string                  `db:"student_id"`
	CourseID    string                  `db:"course_id"`
	OfferingID  string                  `db:"offering_id"`
	Term        string                  `db:"term"`
	CreditHours int                     `db:"credit_hours"`
	Status      domain.EnrollmentStatus `db:"status"`
	Grade       sql.NullString          `db:"grade"`
	EnrolledAt  time.Time               `db:"enrolled_at"`
	UpdatedAt   time.Time               `db:"updated_at"`
}

// StudentRepository persists the Student aggregate with an optimistic
// version column. The enrollment history is append-only: rows are
// inserted or status-updated, never deleted.
type StudentRepository struct {
	db  *sqlx.DB
	now clock.Clock
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB, now clock.Clock) *StudentRepository {
	if now == nil {
		now = clock.System()
	}
	return &StudentRepository{db: db, now: now}
}

// Load rehydrates a student and its enrollment history in insertion order.
func (r *StudentRepository) Load(ctx context.Context, id string) (*domain.Student, error) {
	var row studentRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, status, version FROM students WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("load student %s: %w", id, err)
	}

	var enrollmentRows []enrollmentRow
	const enrollmentsQuery = `SELECT id, student_id, course_id, offering_id, term, credit_hours, status, grade, enrolled_at, updated_at
        FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &enrollmentRows, enrollmentsQuery, id); err != nil {
		return nil, fmt.Errorf("load enrollments for %s: %w", id, err)
	}

	enrollments := make([]*domain.Enrollment, 0, len(enrollmentRows))
	for _, er := range enrollmentRows {
		enrollment := &domain.Enrollment{
			ID:          er.ID,
			StudentID:   er.StudentID,
			CourseID:    er.CourseID,
			OfferingID:  er.OfferingID,
			Term:        er.Term,
			CreditHours: er.CreditHours,
			Status:      er.Status,
			EnrolledAt:  er.EnrolledAt,
			UpdatedAt:   er.UpdatedAt,
		}
		if er.Grade.Valid {
			grade := domain.Grade(er.Grade.String)
			enrollment.Grade = &grade
		}
		enrollments = append(enrollments, enrollment)
	}

	return domain.RehydrateStudent(row.ID, row.Status, row.Version, enrollments), nil
}

// Save writes the aggregate state in one transaction. The version check
// on the root row makes the write all-or-nothing with respect to
// concurrent writers.
func (r *StudentRepository) Save(ctx context.Context, student *domain.Student, expectedVersion int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE students SET status = $2, version = version + 1, updated_at = $3 WHERE id = $1 AND version = $4`,
		student.ID(), student.Status(), r.now(), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save student %s: %w", student.ID(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save student %s: %w", student.ID(), err)
	}
	if affected == 0 {
		return appErrors.ErrVersionConflict
	}

	const upsert = `INSERT INTO enrollments (id, student_id, course_id, offering_id, term, credit_hours, status, grade, enrolled_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, grade = EXCLUDED.grade, updated_at = EXCLUDED.updated_at`
	for _, e := range student.Enrollments() {
		var grade sql.NullString
		if e.Grade != nil {
			grade = sql.NullString{String: string(*e.Grade), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, upsert,
			e.ID, e.StudentID, e.CourseID, e.OfferingID, e.Term, e.CreditHours, e.Status, grade, e.EnrolledAt, e.UpdatedAt,
		); err != nil {
			return fmt.Errorf("save enrollment %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save student %s: %w", student.ID(), err)
	}
	return nil
}
