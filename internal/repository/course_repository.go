package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

// CourseRepository reads the course catalog. The command path never
// mutates catalog entries.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

type courseRow struct {
	ID            string              `db:"id"`
	Code          string              `db:"code"`
	Title         string              `db:"title"`
	CreditHours   int                 `db:"credit_hours"`
	Prerequisites pq.StringArray      `db:"prerequisites"`
	Status        domain.CourseStatus `db:"status"`
}

// Load returns a catalog entry with its ordered prerequisite ids.
func (r *CourseRepository) Load(ctx context.Context, id string) (*domain.Course, error) {
	const query = `SELECT id, code, title, credit_hours, prerequisites, status FROM courses WHERE id = $1`
	var row courseRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, fmt.Errorf("load course %s: %w", id, err)
	}
	return &domain.Course{
		ID:            row.ID,
		Code:          row.Code,
		Title:         row.Title,
		CreditHours:   row.CreditHours,
		Prerequisites: append([]string(nil), row.Prerequisites...),
		Status:        row.Status,
	}, nil
}
