package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registrar-api/internal/query"
)

// EnrollmentReadRepository is the SQL projection source for the query
// processor. It serves denormalized rows and never touches aggregates.
type EnrollmentReadRepository struct {
	db *sqlx.DB
}

// NewEnrollmentReadRepository constructs the read repository.
func NewEnrollmentReadRepository(db *sqlx.DB) *EnrollmentReadRepository {
	return &EnrollmentReadRepository{db: db}
}

// List applies the normalized query's filters, sort and window. The
// secondary sort on id keeps pagination stable across tied sort keys.
func (r *EnrollmentReadRepository) List(ctx context.Context, q query.EnrollmentQuery) ([]query.EnrollmentView, int, error) {
	base := `FROM enrollments e
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if q.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, q.StudentID)
	}
	if q.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, q.CourseID)
	}
	if q.Term != "" {
		conditions = append(conditions, fmt.Sprintf("e.term = $%d", len(args)+1))
		args = append(args, q.Term)
	}
	if q.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, q.Status)
	}
	if q.EnrolledFrom != nil {
		conditions = append(conditions, fmt.Sprintf("e.enrolled_at >= $%d", len(args)+1))
		args = append(args, *q.EnrolledFrom)
	}
	if q.EnrolledTo != nil {
		conditions = append(conditions, fmt.Sprintf("e.enrolled_at <= $%d", len(args)+1))
		args = append(args, *q.EnrolledTo)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"term":         "e.term",
		"course_code":  "c.code",
		"credit_hours": "e.credit_hours",
	}
	orderBy := allowedSorts[q.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}
	offset := (q.Page - 1) * q.PageSize

	listQuery := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, c.code AS course_code, c.title AS course_title,
        e.term, e.credit_hours, e.status, e.grade, e.enrolled_at
        %s ORDER BY %s %s, e.id %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, order, q.PageSize, offset)

	var views []query.EnrollmentView
	if err := r.db.SelectContext(ctx, &views, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return views, total, nil
}
