package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
)

func TestTxManagerCommitsRepositoryWork(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	txm := NewTxManager(db)
	repo := NewEnrollmentRepository(db, nil)
	key := models.EnrollmentKey{StudentID: 2, CourseID: 3}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs(int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(int64(2), int64(3), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := txm.WithinTx(context.Background(), func(ctx context.Context) error {
		exists, err := repo.Exists(ctx, key)
		if err != nil {
			return err
		}
		require.False(t, exists)
		return repo.Create(ctx, &models.Enrollment{EnrollmentKey: key})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	txm := NewTxManager(db)
	sentinel := errors.New("rule violated")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := txm.WithinTx(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerNestedJoinsOuter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	txm := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := txm.WithinTx(context.Background(), func(ctx context.Context) error {
		return txm.WithinTx(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollsBackOnPanic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	txm := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = txm.WithinTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
