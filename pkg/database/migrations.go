package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type migration struct {
	name  string
	query string
}

// The composite primary key on enrollments is the authoritative guard against
// duplicate (student, course) pairs. The foreign keys have no ON DELETE action,
// so removing a student or course with live enrollments fails at the store.
var migrations = []migration{
	{
		name: "create students",
		query: `CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL,
    birth_date DATE NULL,
    CONSTRAINT uk_students_email UNIQUE (email)
)`,
	},
	{
		name: "create courses",
		query: `CREATE TABLE IF NOT EXISTS courses (
    id BIGSERIAL PRIMARY KEY,
    code VARCHAR(50) NOT NULL,
    name VARCHAR(200) NOT NULL,
    CONSTRAINT uk_courses_code UNIQUE (code)
)`,
	},
	{
		name: "create enrollments",
		query: `CREATE TABLE IF NOT EXISTS enrollments (
    student_id BIGINT NOT NULL REFERENCES students (id),
    course_id BIGINT NOT NULL REFERENCES courses (id),
    grade VARCHAR(255) NULL,
    PRIMARY KEY (student_id, course_id)
)`,
	},
	{
		name:  "index enrollments by course",
		query: `CREATE INDEX IF NOT EXISTS idx_enrollments_course_id ON enrollments (course_id)`,
	},
}

// Migrate applies the schema idempotently inside a single transaction.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, m := range migrations {
		if _, err = tx.ExecContext(ctx, m.query); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
		logger.Debug("migration applied", zap.String("name", m.name))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	logger.Info("database migrations completed", zap.Int("count", len(migrations)))
	return nil
}
