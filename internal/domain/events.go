package domain

import "time"

// DomainEvent is raised by an aggregate during a successful mutation and
// dispatched to reaction handlers after the state change is committed.
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// Event names used for handler registration.
const (
	EventStudentEnrolled     = "student.enrolled"
	EventGradeAssigned       = "grade.assigned"
	EventEnrollmentWithdrawn = "enrollment.withdrawn"
)

// StudentEnrolled signals a new active enrollment.
type StudentEnrolled struct {
	StudentID    string    `json:"student_id"`
	EnrollmentID string    `json:"enrollment_id"`
	CourseID     string    `json:"course_id"`
	OfferingID   string    `json:"offering_id"`
	Term         string    `json:"term"`
	CreditHours  int       `json:"credit_hours"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventName identifies the event type.
func (e StudentEnrolled) EventName() string { return EventStudentEnrolled }

// OccurredAt returns the event timestamp.
func (e StudentEnrolled) OccurredAt() time.Time { return e.Timestamp }

// GradeAssigned signals a grade was recorded for an enrollment.
type GradeAssigned struct {
	StudentID    string    `json:"student_id"`
	EnrollmentID string    `json:"enrollment_id"`
	CourseID     string    `json:"course_id"`
	Grade        Grade     `json:"grade"`
	GraderID     string    `json:"grader_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventName identifies the event type.
func (e GradeAssigned) EventName() string { return EventGradeAssigned }

// OccurredAt returns the event timestamp.
func (e GradeAssigned) OccurredAt() time.Time { return e.Timestamp }

// EnrollmentWithdrawn signals a student left a course, freeing capacity
// and credit-hour budget.
type EnrollmentWithdrawn struct {
	StudentID    string    `json:"student_id"`
	EnrollmentID string    `json:"enrollment_id"`
	CourseID     string    `json:"course_id"`
	OfferingID   string    `json:"offering_id"`
	Term         string    `json:"term"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventName identifies the event type.
func (e EnrollmentWithdrawn) EventName() string { return EventEnrollmentWithdrawn }

// OccurredAt returns the event timestamp.
func (e EnrollmentWithdrawn) OccurredAt() time.Time { return e.Timestamp }
