package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
	"villasun/backend/pkg/storage"
)

// UploadHandler 照片上传 HTTP 处理器
type UploadHandler struct {
	uploadSvc service.UploadService
}

// NewUploadHandler 创建 UploadHandler
func NewUploadHandler(uploadSvc service.UploadService) *UploadHandler {
	return &UploadHandler{uploadSvc: uploadSvc}
}

// Upload 上传照片，返回可访问的 URL
// POST /api/v1/uploads/photos
// multipart/form-data, field="photo", 可选 category（默认 patrol）
func (h *UploadHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c)
			return
		}
		response.BadRequest(c, 18201, "请上传照片")
		return
	}
	defer file.Close()

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.uploadSvc.Upload(c.Request.Context(), actor, c.PostForm("category"), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidCategory):
			response.BadRequest(c, 18202, "无效的上传分类")
		case errors.Is(err, storage.ErrUnsupportedType):
			response.BadRequest(c, 18203, "不支持的文件类型")
		case errors.Is(err, storage.ErrTooLarge):
			response.PayloadTooLarge(c)
		default:
			handleCommonError(c, err)
		}
		return
	}

	response.Created(c, result)
}
