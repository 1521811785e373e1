package query

import (
	"context"
	"sort"
	"sync"
)

// MemoryReadStore keeps the enrollment projection in memory. It backs
// tests and single-node deployments; the SQL read store provides the
// same contract for production.
type MemoryReadStore struct {
	mu   sync.RWMutex
	rows map[string]EnrollmentView
}

// NewMemoryReadStore constructs an empty MemoryReadStore.
func NewMemoryReadStore() *MemoryReadStore {
	return &MemoryReadStore{rows: make(map[string]EnrollmentView)}
}

// Upsert projects a view row, replacing any previous row with the same id.
func (s *MemoryReadStore) Upsert(view EnrollmentView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[view.ID] = view
}

// List filters, sorts and windows the projection per the query contract.
func (s *MemoryReadStore) List(_ context.Context, q EnrollmentQuery) ([]EnrollmentView, int, error) {
	s.mu.RLock()
	matched := make([]EnrollmentView, 0, len(s.rows))
	for _, row := range s.rows {
		if matches(row, q) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	sortViews(matched, q.SortBy, q.SortOrder)

	total := len(matched)
	offset := (q.Page - 1) * q.PageSize
	if offset >= total {
		return []EnrollmentView{}, total, nil
	}
	end := offset + q.PageSize
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matches(row EnrollmentView, q EnrollmentQuery) bool {
	if q.StudentID != "" && row.StudentID != q.StudentID {
		return false
	}
	if q.CourseID != "" && row.CourseID != q.CourseID {
		return false
	}
	if q.Term != "" && row.Term != q.Term {
		return false
	}
	if q.Status != "" && row.Status != q.Status {
		return false
	}
	if q.EnrolledFrom != nil && row.EnrolledAt.Before(*q.EnrolledFrom) {
		return false
	}
	if q.EnrolledTo != nil && row.EnrolledAt.After(*q.EnrolledTo) {
		return false
	}
	return true
}

// sortViews orders rows by the requested field with id as the secondary
// key, keeping pagination stable when primary sort keys tie.
func sortViews(rows []EnrollmentView, sortBy, sortOrder string) {
	desc := sortOrder == "desc"
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case "term":
			if a.Term != b.Term {
				return a.Term < b.Term
			}
		case "course_code":
			if a.CourseCode != b.CourseCode {
				return a.CourseCode < b.CourseCode
			}
		case "credit_hours":
			if a.CreditHours != b.CreditHours {
				return a.CreditHours < b.CreditHours
			}
		default:
			if !a.EnrolledAt.Equal(b.EnrolledAt) {
				return a.EnrolledAt.Before(b.EnrolledAt)
			}
		}
		return a.ID < b.ID
	})
}
