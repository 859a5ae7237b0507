package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
}

type studentEnrollmentStore interface {
	CountByStudent(ctx context.Context, studentID int64) (int, error)
	DeleteByStudent(ctx context.Context, studentID int64) (int64, error)
}

// enrollmentManager is the single owner of enroll/unenroll rules.
type enrollmentManager interface {
	Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error)
	Unenroll(ctx context.Context, key models.EnrollmentKey) error
	CoursesOf(ctx context.Context, studentID int64) ([]models.Course, error)
}

// StudentRequest holds the writable student fields. Any id sent by the client is ignored.
type StudentRequest struct {
	FirstName string       `json:"firstName" validate:"required,max=100"`
	LastName  string       `json:"lastName" validate:"required,max=100"`
	Email     string       `json:"email" validate:"required,email,max=255"`
	BirthDate *models.Date `json:"birthDate"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	enrollments studentEnrollmentStore
	manager     enrollmentManager
	tx          txRunner
	policy      DeletePolicy
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, enrollments studentEnrollmentStore, manager enrollmentManager, tx txRunner, policy DeletePolicy, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if tx == nil {
		tx = directRunner{}
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, enrollments: enrollments, manager: manager, tx: tx, policy: policy, validator: validate, logger: logger}
}

// List returns every student.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	return s.find(ctx, id)
}

// Create registers a new student with a unique email.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	student := &models.Student{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		BirthDate: req.BirthDate,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailFree(ctx, req.Email); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, student); err != nil {
			return studentWriteError(err, "failed to create student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.Int64("student_id", student.ID))
	return student, nil
}

// Update overwrites names, email and birth date. The email is re-checked
// only when it changes.
func (s *StudentService) Update(ctx context.Context, id int64, req StudentRequest) (*models.Student, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	var updated *models.Student
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		student, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if student.Email != req.Email {
			if err := s.ensureEmailFree(ctx, req.Email); err != nil {
				return err
			}
		}
		student.FirstName = req.FirstName
		student.LastName = req.LastName
		student.Email = req.Email
		student.BirthDate = req.BirthDate
		if err := s.repo.Update(ctx, student); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return studentNotFound(id)
			}
			return studentWriteError(err, "failed to update student")
		}
		updated = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student updated", zap.Int64("student_id", id))
	return updated, nil
}

// Delete removes a student. Live enrollments block the delete unless the
// service runs with DeleteCascade.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	var removed int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.find(ctx, id); err != nil {
			return err
		}
		count, err := s.enrollments.CountByStudent(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count student enrollments")
		}
		if count > 0 {
			if s.policy != DeleteCascade {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Student %d has %d enrollments", id, count))
			}
			if removed, err = s.enrollments.DeleteByStudent(ctx, id); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student enrollments")
			}
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return studentNotFound(id)
			case errors.Is(err, database.ErrForeignKeyViolation):
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Student %d has enrollments", id))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("student deleted", zap.Int64("student_id", id), zap.Int64("enrollments_removed", removed))
	return nil
}

// ListCourses returns the student's courses. The student id is not checked.
func (s *StudentService) ListCourses(ctx context.Context, studentID int64) ([]models.Course, error) {
	return s.manager.CoursesOf(ctx, studentID)
}

// Enroll delegates to the enrollment manager.
func (s *StudentService) Enroll(ctx context.Context, studentID, courseID int64) (*models.EnrollmentDetail, error) {
	return s.manager.Enroll(ctx, EnrollRequest{StudentID: studentID, CourseID: courseID})
}

// Unenroll delegates to the enrollment manager.
func (s *StudentService) Unenroll(ctx context.Context, studentID, courseID int64) error {
	return s.manager.Unenroll(ctx, models.EnrollmentKey{StudentID: studentID, CourseID: courseID})
}

func (s *StudentService) find(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, studentNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) ensureEmailFree(ctx context.Context, email string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrBadRequest, "Email already exists")
	}
	return nil
}

// normalized trims the names. The email is kept verbatim because uniqueness is an exact match.
func (r StudentRequest) normalized() StudentRequest {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.BirthDate != nil && r.BirthDate.IsZero() {
		r.BirthDate = nil
	}
	return r
}

func studentNotFound(id int64) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Student %d not found", id))
}

func studentWriteError(err error, message string) error {
	if errors.Is(err, database.ErrUniqueViolation) {
		return appErrors.Clone(appErrors.ErrBadRequest, "Email already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
