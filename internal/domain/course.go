package domain

import (
	"time"

	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

// CourseStatus represents course catalog availability.
type CourseStatus string

// Possible course statuses.
const (
	CourseStatusActive   CourseStatus = "ACTIVE"
	CourseStatusInactive CourseStatus = "INACTIVE"
)

// Course is a catalog entry. Offerings are owned by the course; other
// aggregates reference them by id only.
type Course struct {
	ID            string       `db:"id" json:"id"`
	Code          string       `db:"code" json:"code"`
	Title         string       `db:"title" json:"title"`
	CreditHours   int          `db:"credit_hours" json:"credit_hours"`
	Prerequisites []string     `json:"prerequisites,omitempty"`
	Status        CourseStatus `db:"status" json:"status"`
	Offerings     []*CourseOffering
}

// Schedule is an opaque meeting pattern within a term (e.g. "MWF 09:00-09:50").
// Two offerings overlap when their schedule strings are equal; finer-grained
// interval comparison belongs to the timetabling service.
type Schedule string

// CourseOffering is a section of a course in a specific term with bounded
// capacity. The enrolled counter is mutated only through Reserve/Release so
// the capacity invariant holds at this single point.
type CourseOffering struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Term         string    `db:"term" json:"term"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Schedule     Schedule  `db:"schedule" json:"schedule"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Enrolled     int       `db:"enrolled" json:"enrolled"`
	Version      int64     `db:"version" json:"version"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AddOffering registers an offering on the course after checking that
// capacity is non-negative and no other offering of this course in the
// same term overlaps its schedule.
func (c *Course) AddOffering(offering *CourseOffering) error {
	if offering == nil {
		return appErrors.Clone(appErrors.ErrValidation, "offering required")
	}
	if offering.Capacity < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "capacity must be non-negative")
	}
	for _, existing := range c.Offerings {
		if existing.Term == offering.Term && existing.Schedule == offering.Schedule {
			return appErrors.Clone(appErrors.ErrConflict, "overlapping offering schedule for term")
		}
	}
	offering.CourseID = c.ID
	c.Offerings = append(c.Offerings, offering)
	return nil
}

// HasSeat reports whether the offering can accept one more enrollment.
func (o *CourseOffering) HasSeat() bool {
	return o.Enrolled < o.Capacity
}

// Reserve takes one seat. The caller must hold the offering's lock.
func (o *CourseOffering) Reserve() error {
	if !o.HasSeat() {
		return appErrors.Clone(appErrors.ErrRule, "capacity exceeded")
	}
	o.Enrolled++
	return nil
}

// Release frees one seat after a withdrawal.
func (o *CourseOffering) Release() {
	if o.Enrolled > 0 {
		o.Enrolled--
	}
}
