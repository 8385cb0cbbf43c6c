// internal/handlers/course.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub-backend/internal/models"
	"github.com/learnhub/learnhub-backend/internal/services"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

type CourseHandler struct {
	courseService     *services.CourseService
	enrollmentService *services.EnrollmentService
}

func NewCourseHandler(courseService *services.CourseService, enrollmentService *services.EnrollmentService) *CourseHandler {
	return &CourseHandler{
		courseService:     courseService,
		enrollmentService: enrollmentService,
	}
}

// GET /courses
func (h *CourseHandler) GetCourses(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	courses, total, err := h.courseService.ListCourses(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(courses, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	course, err := h.courseService.GetCourse(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.NotFoundResponse(c, "Course")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, course)
}

// POST /admin/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	course, err := h.courseService.CreateCourse(c.Request.Context(), &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, course)
}

// PUT /admin/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	course, err := h.courseService.UpdateCourse(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.NotFoundResponse(c, "Course")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, course)
}

// DELETE /admin/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.courseService.DeleteCourse(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.NotFoundResponse(c, "Course")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Course deleted"})
}

// POST /courses/:id/enroll
func (h *CourseHandler) Enroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	item := services.ItemRef{Kind: models.ItemKindCourse, ID: id}
	if err := h.enrollmentService.Enroll(c.Request.Context(), userID, item); err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			utils.NotFoundResponse(c, "Course")
		case errors.Is(err, services.ErrAlreadyEnrolled):
			utils.ConflictResponse(c, "You are already enrolled in this course")
		case errors.Is(err, services.ErrPaidItem):
			utils.BadRequestResponse(c, "This course requires checkout", nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Enrolled successfully"})
}

// POST /admin/courses/:id/sessions
func (h *CourseHandler) CreateSession(c *gin.Context) {
	courseID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	session, err := h.courseService.CreateSession(c.Request.Context(), courseID, &req)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.NotFoundResponse(c, "Course")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, session)
}

// PUT /admin/sessions/:id
func (h *CourseHandler) UpdateSession(c *gin.Context) {
	sessionID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	session, err := h.courseService.UpdateSession(c.Request.Context(), sessionID, &req)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			utils.NotFoundResponse(c, "Session")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, session)
}

// DELETE /admin/sessions/:id
func (h *CourseHandler) DeleteSession(c *gin.Context) {
	sessionID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.courseService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			utils.NotFoundResponse(c, "Session")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Session deleted"})
}

// PUT /admin/courses/:id/sessions/reorder
func (h *CourseHandler) ReorderSessions(c *gin.Context) {
	courseID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Positions []services.SessionPosition `json:"positions" validate:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.courseService.ReorderSessions(c.Request.Context(), courseID, req.Positions); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			utils.NotFoundResponse(c, "Session")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Sessions reordered"})
}
