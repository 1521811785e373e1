package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

var testTime = time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)

func newCourse(id string, credits int, prereqs ...string) *Course {
	return &Course{ID: id, Code: id, Title: id, CreditHours: credits, Prerequisites: prereqs, Status: CourseStatusActive}
}

func newOffering(id, courseID string, capacity int) *CourseOffering {
	return &CourseOffering{ID: id, CourseID: courseID, Term: "FALL2024", Capacity: capacity}
}

func TestEnrollInCourseSuccess(t *testing.T) {
	student := NewStudent("s1")
	course := newCourse("c1", 3)
	offering := newOffering("o1", "c1", 30)

	enrollmentID, err := student.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollmentID)
	assert.Equal(t, 1, offering.Enrolled)
	assert.Equal(t, 3, student.TermCreditHours("FALL2024"))

	events := student.PullEvents()
	require.Len(t, events, 1)
	enrolled, ok := events[0].(StudentEnrolled)
	require.True(t, ok)
	assert.Equal(t, "s1", enrolled.StudentID)
	assert.Equal(t, enrollmentID, enrolled.EnrollmentID)
	assert.Empty(t, student.PullEvents())
}

func TestEnrollInCourseInactiveStudent(t *testing.T) {
	student := NewStudent("s1")
	student.SetStatus(StudentStatusSuspended)

	_, err := student.EnrollInCourse(newCourse("c1", 3), newOffering("o1", "c1", 30), "FALL2024", testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "student not active", appErrors.FromError(err).Message)
}

func TestEnrollInCourseDuplicate(t *testing.T) {
	student := NewStudent("s1")
	course := newCourse("c1", 3)
	offering := newOffering("o1", "c1", 30)

	_, err := student.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.NoError(t, err)

	_, err = student.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "already enrolled", appErrors.FromError(err).Message)
	assert.Equal(t, 1, offering.Enrolled)
}

func TestEnrollInCourseCreditCeiling(t *testing.T) {
	student := NewStudent("s1")
	for i, id := range []string{"c1", "c2", "c3"} {
		offering := newOffering("o"+id, id, 30)
		_, err := student.EnrollInCourse(newCourse(id, 6), offering, "FALL2024", testTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	require.Equal(t, 18, student.TermCreditHours("FALL2024"))

	_, err := student.EnrollInCourse(newCourse("c4", 4), newOffering("o4", "c4", 30), "FALL2024", testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRule.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "credit limit exceeded", appErrors.FromError(err).Message)

	// A 3-credit course still fits and a different term has a fresh budget.
	_, err = student.EnrollInCourse(newCourse("c5", 3), newOffering("o5", "c5", 30), "FALL2024", testTime)
	require.NoError(t, err)
	_, err = student.EnrollInCourse(newCourse("c6", 6), newOffering("o6", "c6", 30), "SPRING2025", testTime)
	require.NoError(t, err)
}

func TestEnrollInCoursePrerequisites(t *testing.T) {
	student := NewStudent("s1")
	advanced := newCourse("c200", 3, "c100")

	_, err := student.EnrollInCourse(advanced, newOffering("o200", "c200", 30), "SPRING2025", testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRule.Code, appErrors.FromError(err).Code)
	assert.Contains(t, appErrors.FromError(err).Message, "prerequisite not met")

	// Complete the prerequisite with a passing grade.
	intro := newCourse("c100", 3)
	introOffering := newOffering("o100", "c100", 30)
	enrollmentID, err := student.EnrollInCourse(intro, introOffering, "FALL2024", testTime)
	require.NoError(t, err)
	require.NoError(t, student.AssignGrade(enrollmentID, GradeB, "t1", testTime))

	_, err = student.EnrollInCourse(advanced, newOffering("o200", "c200", 30), "SPRING2025", testTime)
	require.NoError(t, err)
}

func TestEnrollInCourseFailedPrerequisiteDoesNotCount(t *testing.T) {
	student := NewStudent("s1")
	intro := newCourse("c100", 3)
	enrollmentID, err := student.EnrollInCourse(intro, newOffering("o100", "c100", 30), "FALL2024", testTime)
	require.NoError(t, err)
	require.NoError(t, student.AssignGrade(enrollmentID, GradeF, "t1", testTime))

	_, err = student.EnrollInCourse(newCourse("c200", 3, "c100"), newOffering("o200", "c200", 30), "SPRING2025", testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRule.Code, appErrors.FromError(err).Code)
}

func TestEnrollInCourseCapacity(t *testing.T) {
	course := newCourse("c1", 3)
	offering := newOffering("o1", "c1", 2)

	var enrollmentIDs []string
	for _, id := range []string{"s1", "s2"} {
		student := NewStudent(id)
		enrollmentID, err := student.EnrollInCourse(course, offering, "FALL2024", testTime)
		require.NoError(t, err)
		enrollmentIDs = append(enrollmentIDs, enrollmentID)
	}
	require.Equal(t, 2, offering.Enrolled)

	third := NewStudent("s3")
	_, err := third.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRule.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "capacity exceeded", appErrors.FromError(err).Message)
	assert.Empty(t, third.Enrollments())
	_ = enrollmentIDs
}

func TestWithdrawFreesCapacityAndCredits(t *testing.T) {
	course := newCourse("c1", 3)
	offering := newOffering("o1", "c1", 2)

	first := NewStudent("s1")
	enrollmentID, err := first.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.NoError(t, err)
	second := NewStudent("s2")
	_, err = second.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.NoError(t, err)

	third := NewStudent("s3")
	_, err = third.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.Error(t, err)

	require.NoError(t, first.Withdraw(enrollmentID, offering, testTime))
	assert.Equal(t, 1, offering.Enrolled)
	assert.Equal(t, 0, first.TermCreditHours("FALL2024"))

	_, err = third.EnrollInCourse(course, offering, "FALL2024", testTime)
	require.NoError(t, err)

	// A second withdrawal of the same enrollment fails.
	err = first.Withdraw(enrollmentID, offering, testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestWithdrawCompletedEnrollment(t *testing.T) {
	student := NewStudent("s1")
	offering := newOffering("o1", "c1", 30)
	enrollmentID, err := student.EnrollInCourse(newCourse("c1", 3), offering, "FALL2024", testTime)
	require.NoError(t, err)
	require.NoError(t, student.AssignGrade(enrollmentID, GradeA, "t1", testTime))

	err = student.Withdraw(enrollmentID, offering, testTime)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestAssignGrade(t *testing.T) {
	student := NewStudent("s1")
	offering := newOffering("o1", "c1", 30)
	enrollmentID, err := student.EnrollInCourse(newCourse("c1", 3), offering, "FALL2024", testTime)
	require.NoError(t, err)
	student.PullEvents()

	require.NoError(t, student.AssignGrade(enrollmentID, GradeAMinus, "t1", testTime))
	enrollments := student.Enrollments()
	require.Len(t, enrollments, 1)
	assert.Equal(t, EnrollmentStatusCompleted, enrollments[0].Status)
	require.NotNil(t, enrollments[0].Grade)
	assert.Equal(t, GradeAMinus, *enrollments[0].Grade)

	events := student.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventGradeAssigned, events[0].EventName())

	// Reassignment overwrites, last write wins.
	require.NoError(t, student.AssignGrade(enrollmentID, GradeB, "t1", testTime))
	assert.Equal(t, GradeB, *student.Enrollments()[0].Grade)
}

func TestAssignGradeErrors(t *testing.T) {
	student := NewStudent("s1")
	offering := newOffering("o1", "c1", 30)
	enrollmentID, err := student.EnrollInCourse(newCourse("c1", 3), offering, "FALL2024", testTime)
	require.NoError(t, err)

	err = student.AssignGrade("missing", GradeA, "t1", testTime)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, student.Withdraw(enrollmentID, offering, testTime))
	err = student.AssignGrade(enrollmentID, GradeA, "t1", testTime)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestAddOfferingScheduleOverlap(t *testing.T) {
	course := newCourse("c1", 3)
	first := &CourseOffering{ID: "o1", Term: "FALL2024", Schedule: "MWF 09:00-09:50", Capacity: 30}
	require.NoError(t, course.AddOffering(first))

	overlapping := &CourseOffering{ID: "o2", Term: "FALL2024", Schedule: "MWF 09:00-09:50", Capacity: 30}
	err := course.AddOffering(overlapping)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	otherTerm := &CourseOffering{ID: "o3", Term: "SPRING2025", Schedule: "MWF 09:00-09:50", Capacity: 30}
	require.NoError(t, course.AddOffering(otherTerm))

	negative := &CourseOffering{ID: "o4", Term: "FALL2024", Schedule: "TTh 10:00-11:15", Capacity: -1}
	err = course.AddOffering(negative)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAcademicRecordOnlyGraded(t *testing.T) {
	student := NewStudent("s1")
	first, err := student.EnrollInCourse(newCourse("c1", 3), newOffering("o1", "c1", 30), "FALL2024", testTime)
	require.NoError(t, err)
	_, err = student.EnrollInCourse(newCourse("c2", 3), newOffering("o2", "c2", 30), "FALL2024", testTime)
	require.NoError(t, err)

	assert.Empty(t, student.AcademicRecord())
	require.NoError(t, student.AssignGrade(first, GradeA, "t1", testTime))
	assert.Len(t, student.AcademicRecord(), 1)
}
