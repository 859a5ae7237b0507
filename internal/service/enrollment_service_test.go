package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

func TestEnrollmentServiceEnrollGradeUnenrollScenario(t *testing.T) {
	f := newFixture(DeleteRestrict)
	ctx := context.Background()
	key := models.EnrollmentKey{StudentID: 2, CourseID: 3}

	detail, err := f.enrollmentSvc.Enroll(ctx, EnrollRequest{StudentID: 2, CourseID: 3})
	require.NoError(t, err)
	assert.Equal(t, key, detail.EnrollmentKey)
	assert.Nil(t, detail.Grade)
	require.NotNil(t, detail.Course)
	assert.Equal(t, "CS300", detail.Course.Code)

	graded, err := f.enrollmentSvc.SetGrade(ctx, SetGradeRequest{StudentID: 2, CourseID: 3, Grade: strPtr("A")})
	require.NoError(t, err)
	assert.Equal(t, key, graded.EnrollmentKey)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, "A", *graded.Grade)
	assert.Equal(t, "A", *f.enrollments.rows[key].Grade)

	require.NoError(t, f.enrollmentSvc.Unenroll(ctx, key))
	assert.NotContains(t, f.enrollments.rows, key)

	err = f.enrollmentSvc.Unenroll(ctx, key)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.EqualError(t, err, "Enrollment not found")
}

func TestEnrollmentServiceEnrollTwiceKeepsOneRow(t *testing.T) {
	f := newFixture(DeleteRestrict)
	ctx := context.Background()

	_, err := f.enrollmentSvc.Enroll(ctx, EnrollRequest{StudentID: 1, CourseID: 1})
	require.NoError(t, err)

	_, err = f.enrollmentSvc.Enroll(ctx, EnrollRequest{StudentID: 1, CourseID: 1})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)
	assert.EqualError(t, err, "Student already enrolled in course")
	assert.Len(t, f.enrollments.rows, 1)
	assert.Equal(t, 1, f.log.count("enrollments.Create"))
}

func TestEnrollmentServiceEnrollMissingStudentNeverQueriesCourses(t *testing.T) {
	f := newFixture(DeleteRestrict)

	_, err := f.enrollmentSvc.Enroll(context.Background(), EnrollRequest{StudentID: 99, CourseID: 1})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.EqualError(t, err, "Student 99 not found")
	assert.Zero(t, f.log.count("courses."))
	assert.Zero(t, f.log.count("enrollments."))
}

func TestEnrollmentServiceEnrollMissingCourseSkipsDuplicateCheck(t *testing.T) {
	f := newFixture(DeleteRestrict)

	_, err := f.enrollmentSvc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 42})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.EqualError(t, err, "Course 42 not found")
	assert.Zero(t, f.log.count("enrollments.Exists"))
	assert.Empty(t, f.enrollments.rows)
}

func TestEnrollmentServiceEnrollConstraintIsAuthoritative(t *testing.T) {
	f := newFixture(DeleteRestrict)
	f.enrollments.rows[models.EnrollmentKey{StudentID: 1, CourseID: 3}] = models.Enrollment{EnrollmentKey: models.EnrollmentKey{StudentID: 1, CourseID: 3}}
	f.enrollments.blindExists = true

	_, err := f.enrollmentSvc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 3})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)
	assert.Len(t, f.enrollments.rows, 1)
}

func TestEnrollmentServiceEnrollValidation(t *testing.T) {
	f := newFixture(DeleteRestrict)

	_, err := f.enrollmentSvc.Enroll(context.Background(), EnrollRequest{StudentID: 0, CourseID: -1})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "studentId")
	assert.Contains(t, appErr.Fields, "courseId")
	assert.Empty(t, f.log.calls)
}

func TestEnrollmentServiceSetGradeMissingLeavesStore(t *testing.T) {
	f := newFixture(DeleteRestrict)
	existing := models.Enrollment{EnrollmentKey: models.EnrollmentKey{StudentID: 1, CourseID: 1}, Grade: strPtr("B")}
	f.enrollments.rows[existing.EnrollmentKey] = existing

	_, err := f.enrollmentSvc.SetGrade(context.Background(), SetGradeRequest{StudentID: 2, CourseID: 1, Grade: strPtr("A")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, map[models.EnrollmentKey]models.Enrollment{existing.EnrollmentKey: existing}, f.enrollments.rows)
	assert.Zero(t, f.log.count("enrollments.UpdateGrade"))
}

func TestEnrollmentServiceSetGradeNullClears(t *testing.T) {
	f := newFixture(DeleteRestrict)
	key := models.EnrollmentKey{StudentID: 1, CourseID: 1}
	f.enrollments.rows[key] = models.Enrollment{EnrollmentKey: key, Grade: strPtr("B")}

	updated, err := f.enrollmentSvc.SetGrade(context.Background(), SetGradeRequest{StudentID: 1, CourseID: 1})
	require.NoError(t, err)
	assert.Nil(t, updated.Grade)
	assert.Nil(t, f.enrollments.rows[key].Grade)
}

func TestEnrollmentServiceSetGradeFreeForm(t *testing.T) {
	f := newFixture(DeleteRestrict)
	key := models.EnrollmentKey{StudentID: 1, CourseID: 1}
	f.enrollments.rows[key] = models.Enrollment{EnrollmentKey: key}

	updated, err := f.enrollmentSvc.SetGrade(context.Background(), SetGradeRequest{StudentID: 1, CourseID: 1, Grade: strPtr("Incomplete - medical")})
	require.NoError(t, err)
	require.NotNil(t, updated.Grade)
	assert.Equal(t, "Incomplete - medical", *updated.Grade)
	assert.Equal(t, "Incomplete - medical", *f.enrollments.rows[key].Grade)
}

func TestEnrollmentServiceSetGradeExceedsColumn(t *testing.T) {
	f := newFixture(DeleteRestrict)

	_, err := f.enrollmentSvc.SetGrade(context.Background(), SetGradeRequest{StudentID: 1, CourseID: 1, Grade: strPtr(strings.Repeat("x", 256))})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "size must be at most 255", appErr.Fields["grade"])
}

func TestEnrollmentServiceUnenrollLeavesOthers(t *testing.T) {
	f := newFixture(DeleteRestrict)
	keys := []models.EnrollmentKey{{StudentID: 1, CourseID: 1}, {StudentID: 1, CourseID: 3}, {StudentID: 2, CourseID: 1}}
	for _, k := range keys {
		f.enrollments.rows[k] = models.Enrollment{EnrollmentKey: k}
	}

	require.NoError(t, f.enrollmentSvc.Unenroll(context.Background(), keys[1]))
	assert.Len(t, f.enrollments.rows, 2)
	assert.Contains(t, f.enrollments.rows, keys[0])
	assert.Contains(t, f.enrollments.rows, keys[2])
}

func TestEnrollmentServiceListViews(t *testing.T) {
	f := newFixture(DeleteRestrict)
	ctx := context.Background()
	for _, k := range []models.EnrollmentKey{{StudentID: 1, CourseID: 1}, {StudentID: 2, CourseID: 1}, {StudentID: 2, CourseID: 3}} {
		f.enrollments.rows[k] = models.Enrollment{EnrollmentKey: k}
	}

	all, err := f.enrollmentSvc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byStudent, err := f.enrollmentSvc.ListByStudent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, byStudent, 2)
	assert.Equal(t, "CS100", byStudent[0].Code)
	assert.Equal(t, "CS300", byStudent[1].Code)

	byCourse, err := f.enrollmentSvc.ListByCourse(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byCourse, 2)
	assert.Equal(t, "ada@example.com", byCourse[0].Email)

	none, err := f.enrollmentSvc.ListByStudent(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEnrollmentServiceMutationsRunInTransaction(t *testing.T) {
	f := newFixture(DeleteRestrict)
	ctx := context.Background()

	_, err := f.enrollmentSvc.Enroll(ctx, EnrollRequest{StudentID: 1, CourseID: 1})
	require.NoError(t, err)
	_, err = f.enrollmentSvc.SetGrade(ctx, SetGradeRequest{StudentID: 1, CourseID: 1, Grade: strPtr("C")})
	require.NoError(t, err)
	require.NoError(t, f.enrollmentSvc.Unenroll(ctx, models.EnrollmentKey{StudentID: 1, CourseID: 1}))
	assert.Equal(t, 3, f.tx.runs)
}
