// internal/handlers/media.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub-backend/internal/services"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

type MediaHandler struct {
	mediaService *services.MediaService
}

func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

type presignUploadRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=image video"`
	Folder      string `json:"folder" validate:"omitempty,max=100"`
	ContentType string `json:"content_type" validate:"required"`
}

// POST /admin/media/presign
func (h *MediaHandler) PresignUpload(c *gin.Context) {
	var req presignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	upload, err := h.mediaService.PresignUpload(services.AssetKind(req.Kind), req.Folder, req.ContentType)
	if err != nil {
		if errors.Is(err, services.ErrAssetStoreUnavailable) {
			utils.InternalErrorResponse(c, "Media host is not configured")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, upload)
}
