package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

// DefaultCreditCeiling is the maximum credit-hour load per term.
const DefaultCreditCeiling = 21

// StudentStatus represents the lifecycle of a student.
type StudentStatus string

// Possible student statuses. Students are never deleted; they are
// deactivated via a status transition.
const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusInactive  StudentStatus = "INACTIVE"
	StudentStatusSuspended StudentStatus = "SUSPENDED"
	StudentStatusGraduated StudentStatus = "GRADUATED"
)

// EnrollmentStatus represents the lifecycle of an enrollment. Records are
// append-only: enrollments transition status but are never removed.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment captures a student's registration in a course for a term.
// CreditHours is a snapshot taken at enrollment time since catalog credit
// hours may change later. Cross-aggregate references are by id only.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	OfferingID  string           `db:"offering_id" json:"offering_id"`
	Term        string           `db:"term" json:"term"`
	CreditHours int              `db:"credit_hours" json:"credit_hours"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	Grade       *Grade           `db:"grade" json:"grade,omitempty"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Student is the aggregate root owning its enrollment history. All
// mutation flows through its methods so the credit-ceiling, duplicate,
// prerequisite and capacity invariants are enforced at a single point.
type Student struct {
	id            string
	status        StudentStatus
	version       int64
	creditCeiling int
	enrollments   []*Enrollment
	events        []DomainEvent
}

// NewStudent creates an active student with no enrollment history.
func NewStudent(id string) *Student {
	if id == "" {
		id = uuid.NewString()
	}
	return &Student{id: id, status: StudentStatusActive, creditCeiling: DefaultCreditCeiling}
}

// RehydrateStudent rebuilds an aggregate from persisted state. It exists
// for repositories and test fixtures; business code must use the
// mutation methods.
func RehydrateStudent(id string, status StudentStatus, version int64, enrollments []*Enrollment) *Student {
	return &Student{
		id:            id,
		status:        status,
		version:       version,
		creditCeiling: DefaultCreditCeiling,
		enrollments:   enrollments,
	}
}

// SetCreditCeiling overrides the per-term credit-hour ceiling. Zero or
// negative values keep the default.
func (s *Student) SetCreditCeiling(ceiling int) {
	if ceiling > 0 {
		s.creditCeiling = ceiling
	}
}

// ID returns the aggregate identity.
func (s *Student) ID() string { return s.id }

// Status returns the current lifecycle status.
func (s *Student) Status() StudentStatus { return s.status }

// Version returns the persisted version used for optimistic concurrency.
func (s *Student) Version() int64 { return s.version }

// SetStatus transitions the student lifecycle status.
func (s *Student) SetStatus(status StudentStatus) { s.status = status }

// Enrollments returns a copy of the enrollment history in insertion
// (chronological) order.
func (s *Student) Enrollments() []Enrollment {
	out := make([]Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		out = append(out, *e)
	}
	return out
}

// PullEvents returns and clears the events raised since the last pull.
func (s *Student) PullEvents() []DomainEvent {
	events := s.events
	s.events = nil
	return events
}

func (s *Student) raise(event DomainEvent) {
	s.events = append(s.events, event)
}

// TermCreditHours sums credit hours of non-withdrawn enrollments in term.
func (s *Student) TermCreditHours(term string) int {
	total := 0
	for _, e := range s.enrollments {
		if e.Term == term && e.Status != EnrollmentStatusWithdrawn {
			total += e.CreditHours
		}
	}
	return total
}

// HasCompleted reports whether the student completed courseID with a
// passing (non-F) grade.
func (s *Student) HasCompleted(courseID string) bool {
	for _, e := range s.enrollments {
		if e.CourseID != courseID || e.Status != EnrollmentStatusCompleted {
			continue
		}
		if e.Grade != nil && e.Grade.Passing() {
			return true
		}
	}
	return false
}

// EnrollInCourse registers the student into an offering of course for
// term. Preconditions are checked in a fixed order and short-circuit on
// the first failure so error reporting stays deterministic: student
// active, no duplicate, credit ceiling, prerequisites, seat available.
// On success the enrollment is appended, the offering seat is reserved
// and a StudentEnrolled event is raised.
func (s *Student) EnrollInCourse(course *Course, offering *CourseOffering, term string, now time.Time) (string, error) {
	if s.status != StudentStatusActive {
		return "", appErrors.Clone(appErrors.ErrInvalidState, "student not active")
	}
	for _, e := range s.enrollments {
		if e.CourseID == course.ID && e.Term == term && e.Status != EnrollmentStatusWithdrawn {
			return "", appErrors.Clone(appErrors.ErrConflict, "already enrolled")
		}
	}
	if s.TermCreditHours(term)+course.CreditHours > s.creditCeiling {
		return "", appErrors.Clone(appErrors.ErrRule, "credit limit exceeded")
	}
	for _, prereq := range course.Prerequisites {
		if !s.HasCompleted(prereq) {
			return "", appErrors.Clone(appErrors.ErrRule, fmt.Sprintf("prerequisite not met: %s", prereq))
		}
	}
	if err := offering.Reserve(); err != nil {
		return "", err
	}

	enrollment := &Enrollment{
		ID:          uuid.NewString(),
		StudentID:   s.id,
		CourseID:    course.ID,
		OfferingID:  offering.ID,
		Term:        term,
		CreditHours: course.CreditHours,
		Status:      EnrollmentStatusActive,
		EnrolledAt:  now,
		UpdatedAt:   now,
	}
	s.enrollments = append(s.enrollments, enrollment)
	s.raise(StudentEnrolled{
		StudentID:    s.id,
		EnrollmentID: enrollment.ID,
		CourseID:     course.ID,
		OfferingID:   offering.ID,
		Term:         term,
		CreditHours:  course.CreditHours,
		Timestamp:    now,
	})
	return enrollment.ID, nil
}

// AssignGrade records a grade on an enrollment and completes it. A
// repeated assignment overwrites (last-write-wins); replay suppression is
// the command pipeline's idempotency concern, not the aggregate's.
func (s *Student) AssignGrade(enrollmentID string, grade Grade, graderID string, now time.Time) error {
	enrollment := s.findEnrollment(enrollmentID)
	if enrollment == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	if enrollment.Status == EnrollmentStatusWithdrawn {
		return appErrors.Clone(appErrors.ErrInvalidState, "enrollment withdrawn")
	}
	if !grade.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown grade")
	}

	g := grade
	enrollment.Grade = &g
	enrollment.Status = EnrollmentStatusCompleted
	enrollment.UpdatedAt = now
	s.raise(GradeAssigned{
		StudentID:    s.id,
		EnrollmentID: enrollment.ID,
		CourseID:     enrollment.CourseID,
		Grade:        grade,
		GraderID:     graderID,
		Timestamp:    now,
	})
	return nil
}

// Withdraw transitions an active enrollment to Withdrawn, releasing the
// offering seat and freeing credit-hour budget for the term.
func (s *Student) Withdraw(enrollmentID string, offering *CourseOffering, now time.Time) error {
	enrollment := s.findEnrollment(enrollmentID)
	if enrollment == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	switch enrollment.Status {
	case EnrollmentStatusWithdrawn:
		return appErrors.Clone(appErrors.ErrInvalidState, "enrollment already withdrawn")
	case EnrollmentStatusCompleted:
		return appErrors.Clone(appErrors.ErrInvalidState, "enrollment already completed")
	}
	if offering != nil && offering.ID == enrollment.OfferingID {
		offering.Release()
	}

	enrollment.Status = EnrollmentStatusWithdrawn
	enrollment.UpdatedAt = now
	s.raise(EnrollmentWithdrawn{
		StudentID:    s.id,
		EnrollmentID: enrollment.ID,
		CourseID:     enrollment.CourseID,
		OfferingID:   enrollment.OfferingID,
		Term:         enrollment.Term,
		Timestamp:    now,
	})
	return nil
}

// AcademicRecord returns the graded enrollment history used as GPA
// input. It is derived on demand, never persisted separately.
func (s *Student) AcademicRecord() []Enrollment {
	var records []Enrollment
	for _, e := range s.enrollments {
		if e.Grade != nil {
			records = append(records, *e)
		}
	}
	return records
}

func (s *Student) findEnrollment(id string) *Enrollment {
	for _, e := range s.enrollments {
		if e.ID == id {
			return e
		}
	}
	return nil
}
