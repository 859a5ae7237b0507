package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	dup := Classify(fmt.Errorf("insert enrollment: %w", &pq.Error{Code: "23505", Constraint: "enrollments_pkey"}))
	assert.True(t, errors.Is(dup, ErrUniqueViolation))
	assert.Contains(t, dup.Error(), "enrollments_pkey")

	fk := Classify(&pq.Error{Code: "23503", Constraint: "enrollments_course_id_fkey"})
	assert.True(t, errors.Is(fk, ErrForeignKeyViolation))
	assert.False(t, errors.Is(fk, ErrUniqueViolation))

	other := &pq.Error{Code: "42P01"}
	assert.Same(t, other, Classify(other))
	assert.Equal(t, sql.ErrNoRows, Classify(sql.ErrNoRows))
	assert.Nil(t, Classify(nil))
}
