// Package query serves the read side: filtered, stably sorted, paginated
// projections. Query handlers never mutate state and never raise events.
package query

import (
	"context"
	"time"

	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

// Default and ceiling page sizes applied regardless of caller request.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// EnrollmentView is the denormalized read model for an enrollment row.
type EnrollmentView struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	Term        string    `db:"term" json:"term"`
	CreditHours int       `db:"credit_hours" json:"credit_hours"`
	Status      string    `db:"status" json:"status"`
	Grade       *string   `db:"grade" json:"grade,omitempty"`
	EnrolledAt  time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentQuery carries equality/range filters, sort and page window.
type EnrollmentQuery struct {
	StudentID    string
	CourseID     string
	Term         string
	Status       string
	EnrolledFrom *time.Time
	EnrolledTo   *time.Time
	SortBy       string
	SortOrder    string
	Page         int
	PageSize     int
}

// EnrollmentReadStore is the projection source. List must honor the
// normalized query's filters, sort (with id as deterministic tie-break)
// and page window, and report the total count independent of the window.
type EnrollmentReadStore interface {
	List(ctx context.Context, q EnrollmentQuery) ([]EnrollmentView, int, error)
}

// PagedResult wraps a page of items with derived pagination metadata.
type PagedResult[T any] struct {
	Items           []T  `json:"items"`
	TotalCount      int  `json:"total_count"`
	Page            int  `json:"page"`
	PageSize        int  `json:"page_size"`
	TotalPages      int  `json:"total_pages"`
	HasNextPage     bool `json:"has_next_page"`
	HasPreviousPage bool `json:"has_previous_page"`
}

// Processor normalizes queries and assembles paged results.
type Processor struct {
	store           EnrollmentReadStore
	defaultPageSize int
	maxPageSize     int
}

// NewProcessor constructs a Processor. Non-positive sizes fall back to
// the package defaults.
func NewProcessor(store EnrollmentReadStore, defaultPageSize, maxPageSize int) *Processor {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	return &Processor{store: store, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// Enrollments executes q against the read store and derives pagination
// metadata. The default sort is enrollment date descending; ties are
// broken by id so pagination never duplicates or skips rows.
func (p *Processor) Enrollments(ctx context.Context, q EnrollmentQuery) (*PagedResult[EnrollmentView], error) {
	normalized := p.normalize(q)

	items, total, err := p.store.List(ctx, normalized)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if items == nil {
		items = []EnrollmentView{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + normalized.PageSize - 1) / normalized.PageSize
	}

	return &PagedResult[EnrollmentView]{
		Items:           items,
		TotalCount:      total,
		Page:            normalized.Page,
		PageSize:        normalized.PageSize,
		TotalPages:      totalPages,
		HasNextPage:     normalized.Page < totalPages,
		HasPreviousPage: normalized.Page > 1 && total > 0,
	}, nil
}

func (p *Processor) normalize(q EnrollmentQuery) EnrollmentQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = p.defaultPageSize
	}
	if q.PageSize > p.maxPageSize {
		q.PageSize = p.maxPageSize
	}
	if q.SortBy == "" {
		q.SortBy = "enrolled_at"
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		q.SortOrder = "desc"
	}
	return q
}
