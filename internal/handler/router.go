package handler

import "github.com/gin-gonic/gin"

// Handlers groups the handlers mounted by RegisterRoutes.
type Handlers struct {
	Students    *StudentHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Metrics     *MetricsHandler
}

// RouteOptions controls optional routes.
type RouteOptions struct {
	Prefix        string
	ExposeMetrics bool
}

// RegisterRoutes mounts the resource routes under opts.Prefix and the probes at the root.
func RegisterRoutes(r gin.IRouter, h Handlers, opts RouteOptions) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		if opts.ExposeMetrics {
			r.GET("/metrics", h.Metrics.Prometheus)
		}
	}

	api := r.Group(opts.Prefix)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.GET("/:id/courses", h.Students.Courses)
	students.POST("/:id/courses", h.Students.Enroll)
	students.DELETE("/:id/courses/:courseId", h.Students.Unenroll)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.POST("", h.Enrollments.Enroll)
	enrollments.DELETE("", h.Enrollments.Unenroll)
	enrollments.PATCH("/grade", h.Enrollments.SetGrade)
	enrollments.GET("/student/:id", h.Enrollments.ByStudent)
	enrollments.GET("/course/:id", h.Enrollments.ByCourse)
}
