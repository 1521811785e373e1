package pipeline

// EnrollStudentCommand requests a new enrollment.
type EnrollStudentCommand struct {
	StudentID      string `json:"student_id" validate:"required"`
	CourseID       string `json:"course_id" validate:"required"`
	OfferingID     string `json:"offering_id" validate:"required"`
	Term           string `json:"term" validate:"required"`
	IdempotencyKey string `json:"-"`
}

// EnrollResult is the stored outcome of a successful enrollment.
type EnrollResult struct {
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
	Term         string `json:"term"`
	CreditHours  int    `json:"credit_hours"`
}

// AssignGradeCommand records a grade on an enrollment.
type AssignGradeCommand struct {
	StudentID      string `json:"student_id" validate:"required"`
	EnrollmentID   string `json:"enrollment_id" validate:"required"`
	Grade          string `json:"grade" validate:"required"`
	GraderID       string `json:"grader_id" validate:"required"`
	IdempotencyKey string `json:"-"`
}

// AssignGradeResult is the stored outcome of a grade assignment.
type AssignGradeResult struct {
	EnrollmentID string `json:"enrollment_id"`
	Grade        string `json:"grade"`
}

// WithdrawCommand withdraws a student from an active enrollment.
type WithdrawCommand struct {
	StudentID      string `json:"student_id" validate:"required"`
	EnrollmentID   string `json:"enrollment_id" validate:"required"`
	IdempotencyKey string `json:"-"`
}

// WithdrawResult is the stored outcome of a withdrawal.
type WithdrawResult struct {
	EnrollmentID string `json:"enrollment_id"`
	Status       string `json:"status"`
}

// Command names used for logging and metrics labels.
const (
	CommandEnrollStudent = "enroll_student"
	CommandAssignGrade   = "assign_grade"
	CommandWithdraw      = "withdraw_enrollment"
)
