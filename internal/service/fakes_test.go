package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
)

type callLog struct {
	calls []string
}

func (l *callLog) record(format string, args ...interface{}) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, call := range l.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

type fakeTx struct {
	runs int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.runs++
	return fn(ctx)
}

type fakeStudentRepo struct {
	log      *callLog
	students map[int64]models.Student
	nextID   int64
	err      error
}

func newFakeStudentRepo(log *callLog, students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{log: log, students: map[int64]models.Student{}, nextID: 1}
	for _, s := range students {
		repo.students[s.ID] = s
		if s.ID >= repo.nextID {
			repo.nextID = s.ID + 1
		}
	}
	return repo
}

func (f *fakeStudentRepo) List(ctx context.Context) ([]models.Student, error) {
	f.log.record("students.List")
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	f.log.record("students.FindByID %d", id)
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeStudentRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	f.log.record("students.ExistsByEmail %s", email)
	for _, s := range f.students {
		if s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	f.log.record("students.Create")
	for _, s := range f.students {
		if s.Email == student.Email {
			return fmt.Errorf("create student: %w", database.ErrUniqueViolation)
		}
	}
	student.ID = f.nextID
	f.nextID++
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	f.log.record("students.Update %d", student.ID)
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id int64) error {
	f.log.record("students.Delete %d", id)
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

type fakeCourseRepo struct {
	log     *callLog
	courses map[int64]models.Course
	nextID  int64
}

func newFakeCourseRepo(log *callLog, courses ...models.Course) *fakeCourseRepo {
	repo := &fakeCourseRepo{log: log, courses: map[int64]models.Course{}, nextID: 1}
	for _, c := range courses {
		repo.courses[c.ID] = c
		if c.ID >= repo.nextID {
			repo.nextID = c.ID + 1
		}
	}
	return repo
}

func (f *fakeCourseRepo) List(ctx context.Context) ([]models.Course, error) {
	f.log.record("courses.List")
	out := make([]models.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCourseRepo) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	f.log.record("courses.FindByID %d", id)
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCourseRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	f.log.record("courses.ExistsByCode %s", code)
	for _, c := range f.courses {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCourseRepo) Create(ctx context.Context, course *models.Course) error {
	f.log.record("courses.Create")
	for _, c := range f.courses {
		if c.Code == course.Code {
			return fmt.Errorf("create course: %w", database.ErrUniqueViolation)
		}
	}
	course.ID = f.nextID
	f.nextID++
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseRepo) Update(ctx context.Context, course *models.Course) error {
	f.log.record("courses.Update %d", course.ID)
	if _, ok := f.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseRepo) Delete(ctx context.Context, id int64) error {
	f.log.record("courses.Delete %d", id)
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.courses, id)
	return nil
}

// codes returns the number of stored courses using code.
func (f *fakeCourseRepo) codes(code string) int {
	n := 0
	for _, c := range f.courses {
		if c.Code == code {
			n++
		}
	}
	return n
}

type fakeEnrollmentRepo struct {
	log      *callLog
	rows     map[models.EnrollmentKey]models.Enrollment
	students *fakeStudentRepo
	courses  *fakeCourseRepo
	// blindExists makes Exists report false to simulate a concurrent insert
	// slipping past the pre-check.
	blindExists bool
}

func newFakeEnrollmentRepo(log *callLog, students *fakeStudentRepo, courses *fakeCourseRepo, rows ...models.Enrollment) *fakeEnrollmentRepo {
	repo := &fakeEnrollmentRepo{log: log, rows: map[models.EnrollmentKey]models.Enrollment{}, students: students, courses: courses}
	for _, e := range rows {
		repo.rows[e.EnrollmentKey] = e
	}
	return repo
}

func (f *fakeEnrollmentRepo) sortedKeys() []models.EnrollmentKey {
	keys := make([]models.EnrollmentKey, 0, len(f.rows))
	for k := range f.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StudentID != keys[j].StudentID {
			return keys[i].StudentID < keys[j].StudentID
		}
		return keys[i].CourseID < keys[j].CourseID
	})
	return keys
}

func (f *fakeEnrollmentRepo) List(ctx context.Context) ([]models.Enrollment, error) {
	f.log.record("enrollments.List")
	out := []models.Enrollment{}
	for _, k := range f.sortedKeys() {
		out = append(out, f.rows[k])
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error) {
	f.log.record("enrollments.ListByStudent %d", studentID)
	out := []models.StudentCourse{}
	for _, k := range f.sortedKeys() {
		if k.StudentID != studentID {
			continue
		}
		c := f.courses.courses[k.CourseID]
		out = append(out, models.StudentCourse{CourseID: c.ID, Code: c.Code, Name: c.Name, Grade: f.rows[k].Grade})
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error) {
	f.log.record("enrollments.ListByCourse %d", courseID)
	out := []models.CourseStudent{}
	for _, k := range f.sortedKeys() {
		if k.CourseID != courseID {
			continue
		}
		s := f.students.students[k.StudentID]
		out = append(out, models.CourseStudent{StudentID: s.ID, FirstName: s.FirstName, LastName: s.LastName, Email: s.Email, Grade: f.rows[k].Grade})
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) ListCoursesByStudent(ctx context.Context, studentID int64) ([]models.Course, error) {
	f.log.record("enrollments.ListCoursesByStudent %d", studentID)
	out := []models.Course{}
	for _, k := range f.sortedKeys() {
		if k.StudentID == studentID {
			out = append(out, f.courses.courses[k.CourseID])
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) FindByKey(ctx context.Context, key models.EnrollmentKey) (*models.Enrollment, error) {
	f.log.record("enrollments.FindByKey %d/%d", key.StudentID, key.CourseID)
	e, ok := f.rows[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (f *fakeEnrollmentRepo) Exists(ctx context.Context, key models.EnrollmentKey) (bool, error) {
	f.log.record("enrollments.Exists %d/%d", key.StudentID, key.CourseID)
	if f.blindExists {
		return false, nil
	}
	_, ok := f.rows[key]
	return ok, nil
}

func (f *fakeEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	f.log.record("enrollments.Create %d/%d", enrollment.StudentID, enrollment.CourseID)
	if _, ok := f.rows[enrollment.EnrollmentKey]; ok {
		return fmt.Errorf("create enrollment: %w", database.ErrUniqueViolation)
	}
	f.rows[enrollment.EnrollmentKey] = *enrollment
	return nil
}

func (f *fakeEnrollmentRepo) UpdateGrade(ctx context.Context, key models.EnrollmentKey, grade *string) error {
	f.log.record("enrollments.UpdateGrade %d/%d", key.StudentID, key.CourseID)
	e, ok := f.rows[key]
	if !ok {
		return sql.ErrNoRows
	}
	e.Grade = grade
	f.rows[key] = e
	return nil
}

func (f *fakeEnrollmentRepo) Delete(ctx context.Context, key models.EnrollmentKey) error {
	f.log.record("enrollments.Delete %d/%d", key.StudentID, key.CourseID)
	if _, ok := f.rows[key]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, key)
	return nil
}

func (f *fakeEnrollmentRepo) CountByStudent(ctx context.Context, studentID int64) (int, error) {
	f.log.record("enrollments.CountByStudent %d", studentID)
	n := 0
	for k := range f.rows {
		if k.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollmentRepo) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	f.log.record("enrollments.CountByCourse %d", courseID)
	n := 0
	for k := range f.rows {
		if k.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollmentRepo) DeleteByStudent(ctx context.Context, studentID int64) (int64, error) {
	f.log.record("enrollments.DeleteByStudent %d", studentID)
	var n int64
	for k := range f.rows {
		if k.StudentID == studentID {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollmentRepo) DeleteByCourse(ctx context.Context, courseID int64) (int64, error) {
	f.log.record("enrollments.DeleteByCourse %d", courseID)
	var n int64
	for k := range f.rows {
		if k.CourseID == courseID {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

// fixture wires the three services against shared in-memory stores.
type fixture struct {
	log         *callLog
	tx          *fakeTx
	students    *fakeStudentRepo
	courses     *fakeCourseRepo
	enrollments *fakeEnrollmentRepo

	studentSvc    *StudentService
	courseSvc     *CourseService
	enrollmentSvc *EnrollmentService
}

func newFixture(policy DeletePolicy) *fixture {
	log := &callLog{}
	students := newFakeStudentRepo(log,
		models.Student{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		models.Student{ID: 2, FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
	)
	courses := newFakeCourseRepo(log,
		models.Course{ID: 1, Code: "CS100", Name: "Intro"},
		models.Course{ID: 3, Code: "CS300", Name: "Compilers"},
	)
	enrollments := newFakeEnrollmentRepo(log, students, courses)
	tx := &fakeTx{}

	enrollmentSvc := NewEnrollmentService(enrollments, students, courses, tx, nil, nil)
	return &fixture{
		log:           log,
		tx:            tx,
		students:      students,
		courses:       courses,
		enrollments:   enrollments,
		enrollmentSvc: enrollmentSvc,
		studentSvc:    NewStudentService(students, enrollments, enrollmentSvc, tx, policy, nil, nil),
		courseSvc:     NewCourseService(courses, enrollments, tx, policy, nil, nil),
	}
}

func strPtr(value string) *string {
	return &value
}
