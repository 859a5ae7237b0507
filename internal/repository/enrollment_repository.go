package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
)

// EnrollmentRepository handles persistence of enrollments keyed by
// (student_id, course_id).
type EnrollmentRepository struct {
	db *sqlx.DB
	observed
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB, metrics QueryObserver) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, observed: observed{metrics: metrics}}
}

// List returns all enrollments.
func (r *EnrollmentRepository) List(ctx context.Context) ([]models.Enrollment, error) {
	defer r.observe("enrollments.list", time.Now())
	const query = `SELECT student_id, course_id, grade FROM enrollments ORDER BY student_id, course_id`
	enrollments := []models.Enrollment{}
	if err := conn(ctx, r.db).SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns the courses a student is enrolled in together with grades.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error) {
	defer r.observe("enrollments.list_by_student", time.Now())
	const query = `SELECT e.course_id, c.code, c.name, e.grade
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.course_id`
	rows := []models.StudentCourse{}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return rows, nil
}

// ListByCourse returns the roster of a course together with grades.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error) {
	defer r.observe("enrollments.list_by_course", time.Now())
	const query = `SELECT e.student_id, s.first_name, s.last_name, s.email, e.grade
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY e.student_id`
	rows := []models.CourseStudent{}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return rows, nil
}

// ListCoursesByStudent returns every course reachable through the student's enrollments.
func (r *EnrollmentRepository) ListCoursesByStudent(ctx context.Context, studentID int64) ([]models.Course, error) {
	defer r.observe("enrollments.list_courses_by_student", time.Now())
	const query = `SELECT c.id, c.code, c.name
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY c.id`
	courses := []models.Course{}
	if err := conn(ctx, r.db).SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// FindByKey returns the enrollment for key or sql.ErrNoRows. Inside a
// transaction the row stays locked until commit.
func (r *EnrollmentRepository) FindByKey(ctx context.Context, key models.EnrollmentKey) (*models.Enrollment, error) {
	defer r.observe("enrollments.find_by_key", time.Now())
	const query = `SELECT student_id, course_id, grade FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE`
	var enrollment models.Enrollment
	if err := conn(ctx, r.db).GetContext(ctx, &enrollment, query, key.StudentID, key.CourseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether an enrollment for key is stored.
func (r *EnrollmentRepository) Exists(ctx context.Context, key models.EnrollmentKey) (bool, error) {
	defer r.observe("enrollments.exists", time.Now())
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, key.StudentID, key.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment. A duplicate key surfaces as
// database.ErrUniqueViolation.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	defer r.observe("enrollments.create", time.Now())
	const query = `INSERT INTO enrollments (student_id, course_id, grade) VALUES (:student_id, :course_id, :grade)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", database.Classify(err))
	}
	return nil
}

// UpdateGrade overwrites the grade of an enrollment. A nil grade clears it.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, key models.EnrollmentKey, grade *string) error {
	defer r.observe("enrollments.update_grade", time.Now())
	const query = `UPDATE enrollments SET grade = $3 WHERE student_id = $1 AND course_id = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, key.StudentID, key.CourseID, grade)
	if err != nil {
		return fmt.Errorf("update enrollment grade: %w", err)
	}
	return affected(res)
}

// Delete removes exactly the enrollment identified by key.
func (r *EnrollmentRepository) Delete(ctx context.Context, key models.EnrollmentKey) error {
	defer r.observe("enrollments.delete", time.Now())
	const query = `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, key.StudentID, key.CourseID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return affected(res)
}

// CountByStudent returns the number of enrollments held by a student.
func (r *EnrollmentRepository) CountByStudent(ctx context.Context, studentID int64) (int, error) {
	defer r.observe("enrollments.count_by_student", time.Now())
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("count student enrollments: %w", err)
	}
	return count, nil
}

// CountByCourse returns the number of enrollments in a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	defer r.observe("enrollments.count_by_course", time.Now())
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// DeleteByStudent removes every enrollment of a student.
func (r *EnrollmentRepository) DeleteByStudent(ctx context.Context, studentID int64) (int64, error) {
	defer r.observe("enrollments.delete_by_student", time.Now())
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, fmt.Errorf("delete student enrollments: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByCourse removes every enrollment in a course.
func (r *EnrollmentRepository) DeleteByCourse(ctx context.Context, courseID int64) (int64, error) {
	defer r.observe("enrollments.delete_by_course", time.Now())
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete course enrollments: %w", err)
	}
	return res.RowsAffected()
}
