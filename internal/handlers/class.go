// internal/handlers/class.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/learnhub/learnhub-backend/internal/models"
	"github.com/learnhub/learnhub-backend/internal/services"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

type ClassHandler struct {
	classService      *services.ClassService
	enrollmentService *services.EnrollmentService
}

func NewClassHandler(classService *services.ClassService, enrollmentService *services.EnrollmentService) *ClassHandler {
	return &ClassHandler{
		classService:      classService,
		enrollmentService: enrollmentService,
	}
}

// GET /classes
func (h *ClassHandler) GetClasses(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	classes, total, err := h.classService.ListClasses(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(classes, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	class, err := h.classService.GetClass(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.NotFoundResponse(c, "Class")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, class)
}

// POST /admin/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req services.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	class, err := h.classService.CreateClass(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrProductRefRequired) {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, class)
}

// PUT /admin/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	class, err := h.classService.UpdateClass(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			utils.NotFoundResponse(c, "Class")
		case errors.Is(err, services.ErrProductRefRequired):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, class)
}

// DELETE /admin/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.classService.DeleteClass(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.NotFoundResponse(c, "Class")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Class deleted"})
}

// POST /classes/:id/enroll
func (h *ClassHandler) Enroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	item := services.ItemRef{Kind: models.ItemKindClass, ID: id}
	if err := h.enrollmentService.Enroll(c.Request.Context(), userID, item); err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			utils.NotFoundResponse(c, "Class")
		case errors.Is(err, services.ErrAlreadyEnrolled):
			utils.ConflictResponse(c, "You are already enrolled in this class")
		case errors.Is(err, services.ErrPaidItem):
			utils.BadRequestResponse(c, "This class requires checkout", nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Enrolled successfully"})
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
