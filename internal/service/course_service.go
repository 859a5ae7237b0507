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

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

type courseEnrollmentStore interface {
	CountByCourse(ctx context.Context, courseID int64) (int, error)
	DeleteByCourse(ctx context.Context, courseID int64) (int64, error)
}

// CourseRequest holds the writable course fields. Any id sent by the client is ignored.
type CourseRequest struct {
	Code string `json:"code" validate:"required,max=50"`
	Name string `json:"name" validate:"required,max=200"`
}

// CourseService manages the course catalogue.
type CourseService struct {
	repo        courseRepository
	enrollments courseEnrollmentStore
	tx          txRunner
	policy      DeletePolicy
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, enrollments courseEnrollmentStore, tx txRunner, policy DeletePolicy, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if tx == nil {
		tx = directRunner{}
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, enrollments: enrollments, tx: tx, policy: policy, validator: validate, logger: logger}
}

// List returns every course.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	return s.find(ctx, id)
}

// Create registers a course with a unique code.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	course := &models.Course{Code: req.Code, Name: req.Name}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureCodeFree(ctx, req.Code); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, course); err != nil {
			return courseWriteError(err, "failed to create course")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update overwrites code and name. Uniqueness is re-checked only when the code changes.
func (s *CourseService) Update(ctx context.Context, id int64, req CourseRequest) (*models.Course, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err)
	}

	var updated *models.Course
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		course, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if course.Code != req.Code {
			if err := s.ensureCodeFree(ctx, req.Code); err != nil {
				return err
			}
		}
		course.Code = req.Code
		course.Name = req.Name
		if err := s.repo.Update(ctx, course); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return courseNotFound(id)
			}
			return courseWriteError(err, "failed to update course")
		}
		updated = course
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("course updated", zap.Int64("course_id", id))
	return updated, nil
}

// Delete removes a course. Live enrollments block the delete unless the
// service runs with DeleteCascade.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	var removed int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.find(ctx, id); err != nil {
			return err
		}
		count, err := s.enrollments.CountByCourse(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count course enrollments")
		}
		if count > 0 {
			if s.policy != DeleteCascade {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Course %d has %d enrollments", id, count))
			}
			if removed, err = s.enrollments.DeleteByCourse(ctx, id); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course enrollments")
			}
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return courseNotFound(id)
			case errors.Is(err, database.ErrForeignKeyViolation):
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Course %d has enrollments", id))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("course deleted", zap.Int64("course_id", id), zap.Int64("enrollments_removed", removed))
	return nil
}

func (s *CourseService) find(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, courseNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) ensureCodeFree(ctx context.Context, code string) error {
	exists, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrBadRequest, "Code already exists")
	}
	return nil
}

// normalized trims the name. The code is kept verbatim because uniqueness is an exact match.
func (r CourseRequest) normalized() CourseRequest {
	r.Name = strings.TrimSpace(r.Name)
	return r
}

func courseNotFound(id int64) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Course %d not found", id))
}

// courseWriteError treats the unique constraint as the authoritative duplicate signal.
func courseWriteError(err error, message string) error {
	if errors.Is(err, database.ErrUniqueViolation) {
		return appErrors.Clone(appErrors.ErrBadRequest, "Code already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
