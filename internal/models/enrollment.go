package models

import "fmt"

// EnrollmentKey is the natural identity of an enrollment.
type EnrollmentKey struct {
	StudentID int64 `db:"student_id" json:"studentId"`
	CourseID  int64 `db:"course_id" json:"courseId"`
}

// String renders the key for logs and messages.
func (k EnrollmentKey) String() string {
	return fmt.Sprintf("(student=%d, course=%d)", k.StudentID, k.CourseID)
}

// Enrollment links one student to one course. It holds lookup keys only; the
// endpoints are resolved through their own stores.
type Enrollment struct {
	EnrollmentKey
	Grade *string `db:"grade" json:"grade"`
}

// EnrollmentDetail is an enrollment returned together with its course.
type EnrollmentDetail struct {
	Enrollment
	Course *Course `json:"course,omitempty"`
}

// StudentCourse is one row of a student's course list with the grade earned.
type StudentCourse struct {
	CourseID int64   `db:"course_id" json:"courseId"`
	Code     string  `db:"code" json:"code"`
	Name     string  `db:"name" json:"name"`
	Grade    *string `db:"grade" json:"grade"`
}

// CourseStudent is one row of a course roster with the grade earned.
type CourseStudent struct {
	StudentID int64   `db:"student_id" json:"studentId"`
	FirstName string  `db:"first_name" json:"firstName"`
	LastName  string  `db:"last_name" json:"lastName"`
	Email     string  `db:"email" json:"email"`
	Grade     *string `db:"grade" json:"grade"`
}
