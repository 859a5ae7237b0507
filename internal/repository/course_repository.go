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

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
	observed
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB, metrics QueryObserver) *CourseRepository {
	return &CourseRepository{db: db, observed: observed{metrics: metrics}}
}

// List returns every course in id order.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	defer r.observe("courses.list", time.Now())
	const query = `SELECT id, code, name FROM courses ORDER BY id`
	courses := []models.Course{}
	if err := conn(ctx, r.db).SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id or sql.ErrNoRows.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	defer r.observe("courses.find_by_id", time.Now())
	const query = `SELECT id, code, name FROM courses WHERE id = $1`
	var course models.Course
	if err := conn(ctx, r.db).GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode checks uniqueness of a course code. Matching is case-sensitive.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	defer r.observe("courses.exists_by_code", time.Now())
	const query = `SELECT 1 FROM courses WHERE code = $1 LIMIT 1`
	var exists int
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create persists a new course and assigns the generated id.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	defer r.observe("courses.create", time.Now())
	const query = `INSERT INTO courses (code, name) VALUES ($1, $2) RETURNING id`
	if err := conn(ctx, r.db).GetContext(ctx, &course.ID, query, course.Code, course.Name); err != nil {
		return fmt.Errorf("create course: %w", database.Classify(err))
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	defer r.observe("courses.update", time.Now())
	const query = `UPDATE courses SET code = :code, name = :name WHERE id = :id`
	res, err := conn(ctx, r.db).NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", database.Classify(err))
	}
	return affected(res)
}

// Delete removes a course record.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	defer r.observe("courses.delete", time.Now())
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", database.Classify(err))
	}
	return affected(res)
}
