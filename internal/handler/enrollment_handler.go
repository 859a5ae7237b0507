package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context) ([]models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error)
	Enroll(ctx context.Context, req service.EnrollRequest) (*models.EnrollmentDetail, error)
	SetGrade(ctx context.Context, req service.SetGradeRequest) (*models.Enrollment, error)
	Unenroll(ctx context.Context, key models.EnrollmentKey) error
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {array} models.Enrollment
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	enrollments, err := h.enrollments.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollments)
}

// ByStudent godoc
// @Summary List a student's courses with grades
// @Tags Enrollments
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {array} models.StudentCourse
// @Router /enrollments/student/{id} [get]
func (h *EnrollmentHandler) ByStudent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rows, err := h.enrollments.ListByStudent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// ByCourse godoc
// @Summary List a course roster with grades
// @Tags Enrollments
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {array} models.CourseStudent
// @Router /enrollments/course/{id} [get]
func (h *EnrollmentHandler) ByCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rows, err := h.enrollments.ListByCourse(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// Enroll godoc
// @Summary Enroll a student in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment key"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	detail, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail.Enrollment)
}

// SetGrade godoc
// @Summary Assign or clear a grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.SetGradeRequest true "Grade payload"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /enrollments/grade [patch]
func (h *EnrollmentHandler) SetGrade(c *gin.Context) {
	var req service.SetGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.SetGrade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// Unenroll godoc
// @Summary Delete an enrollment
// @Tags Enrollments
// @Param studentId query int true "Student ID"
// @Param courseId query int true "Course ID"
// @Success 200
// @Failure 404 {object} response.ErrorBody
// @Router /enrollments [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	studentID, ok := queryID(c, "studentId")
	if !ok {
		return
	}
	courseID, ok := queryID(c, "courseId")
	if !ok {
		return
	}
	if err := h.enrollments.Unenroll(c.Request.Context(), models.EnrollmentKey{StudentID: studentID, CourseID: courseID}); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusOK)
}
