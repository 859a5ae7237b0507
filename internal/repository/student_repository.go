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

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
	observed
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB, metrics QueryObserver) *StudentRepository {
	return &StudentRepository{db: db, observed: observed{metrics: metrics}}
}

// List returns every student in id order.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	defer r.observe("students.list", time.Now())
	const query = `SELECT id, first_name, last_name, email, birth_date FROM students ORDER BY id`
	students := []models.Student{}
	if err := conn(ctx, r.db).SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns a student by id or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	defer r.observe("students.find_by_id", time.Now())
	const query = `SELECT id, first_name, last_name, email, birth_date FROM students WHERE id = $1`
	var student models.Student
	if err := conn(ctx, r.db).GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByEmail checks whether any student already uses email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer r.observe("students.exists_by_email", time.Now())
	const query = `SELECT 1 FROM students WHERE email = $1 LIMIT 1`
	var exists int
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// Create inserts a student and assigns the generated id.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	defer r.observe("students.create", time.Now())
	const query = `INSERT INTO students (first_name, last_name, email, birth_date) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := conn(ctx, r.db).GetContext(ctx, &student.ID, query, student.FirstName, student.LastName, student.Email, student.BirthDate); err != nil {
		return fmt.Errorf("create student: %w", database.Classify(err))
	}
	return nil
}

// Update writes the mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	defer r.observe("students.update", time.Now())
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, email = :email, birth_date = :birth_date WHERE id = :id`
	res, err := conn(ctx, r.db).NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", database.Classify(err))
	}
	return affected(res)
}

// Delete removes a student record.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	defer r.observe("students.delete", time.Now())
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", database.Classify(err))
	}
	return affected(res)
}
