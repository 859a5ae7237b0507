package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context) ([]models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error)
	ListCoursesByStudent(ctx context.Context, studentID int64) ([]models.Course, error)
	FindByKey(ctx context.Context, key models.EnrollmentKey) (*models.Enrollment, error)
	Exists(ctx context.Context, key models.EnrollmentKey) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateGrade(ctx context.Context, key models.EnrollmentKey, grade *string) error
	Delete(ctx context.Context, key models.EnrollmentKey) error
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// EnrollRequest identifies the student and course to link.
type EnrollRequest struct {
	StudentID int64 `json:"studentId" validate:"required,gt=0"`
	CourseID  int64 `json:"courseId" validate:"required,gt=0"`
}

// SetGradeRequest assigns a grade to an existing enrollment. A null grade clears it.
type SetGradeRequest struct {
	StudentID int64   `json:"studentId" validate:"required,gt=0"`
	CourseID  int64   `json:"courseId" validate:"required,gt=0"`
	Grade     *string `json:"grade" validate:"omitempty,max=255"`
}

// EnrollmentService owns every rule about the student/course relationship.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	tx        txRunner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, tx txRunner, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if tx == nil {
		tx = directRunner{}
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, tx: tx, validator: validate, logger: logger}
}

// List returns all enrollments.
func (s *EnrollmentService) List(ctx context.Context) ([]models.Enrollment, error) {
	enrollments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListByStudent returns the student's courses with grades. Unknown students yield an empty list.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error) {
	rows, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student enrollments")
	}
	return rows, nil
}

// ListByCourse returns the course roster with grades. Unknown courses yield an empty list.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error) {
	rows, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course enrollments")
	}
	return rows, nil
}

// CoursesOf returns every course the student is enrolled in.
func (s *EnrollmentService) CoursesOf(ctx context.Context, studentID int64) ([]models.Course, error) {
	courses, err := s.repo.ListCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student courses")
	}
	return courses, nil
}

// Enroll links a student to a course. Checks run in order student, course,
// duplicate pair and stop at the first failure.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}
	key := models.EnrollmentKey{StudentID: req.StudentID, CourseID: req.CourseID}

	var detail *models.EnrollmentDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.students.FindByID(ctx, key.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return studentNotFound(key.StudentID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		course, err := s.courses.FindByID(ctx, key.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return courseNotFound(key.CourseID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		exists, err := s.repo.Exists(ctx, key)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if exists {
			return errAlreadyEnrolled()
		}

		enrollment := models.Enrollment{EnrollmentKey: key}
		if err := s.repo.Create(ctx, &enrollment); err != nil {
			switch {
			case errors.Is(err, database.ErrUniqueViolation):
				return errAlreadyEnrolled()
			case errors.Is(err, database.ErrForeignKeyViolation):
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Student %d or course %d not found", key.StudentID, key.CourseID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
		detail = &models.EnrollmentDetail{Enrollment: enrollment, Course: course}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student enrolled", zap.Int64("student_id", key.StudentID), zap.Int64("course_id", key.CourseID))
	return detail, nil
}

// SetGrade overwrites the grade of an existing enrollment.
func (s *EnrollmentService) SetGrade(ctx context.Context, req SetGradeRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}
	key := models.EnrollmentKey{StudentID: req.StudentID, CourseID: req.CourseID}

	var updated *models.Enrollment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		enrollment, err := s.repo.FindByKey(ctx, key)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errEnrollmentNotFound()
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if err := s.repo.UpdateGrade(ctx, key, req.Grade); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errEnrollmentNotFound()
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
		}
		enrollment.Grade = req.Grade
		updated = enrollment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("grade set", zap.Int64("student_id", key.StudentID), zap.Int64("course_id", key.CourseID), zap.Bool("cleared", req.Grade == nil))
	return updated, nil
}

// Unenroll deletes exactly the enrollment identified by key.
func (s *EnrollmentService) Unenroll(ctx context.Context, key models.EnrollmentKey) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, key); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errEnrollmentNotFound()
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("student unenrolled", zap.Int64("student_id", key.StudentID), zap.Int64("course_id", key.CourseID))
	return nil
}

func errAlreadyEnrolled() error {
	return appErrors.Clone(appErrors.ErrBadRequest, "Student already enrolled in course")
}

func errEnrollmentNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "Enrollment not found")
}
