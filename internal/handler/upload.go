package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"team_chat/internal/service"
	"team_chat/pkg/logger"
)

type UploadHandler struct {
	uploadService service.UploadService
	maxBytes      int64
	log           logger.Logger
}

func NewUploadHandler(uploadService service.UploadService, maxBytes int64, log logger.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		maxBytes:      maxBytes,
		log:           log,
	}
}

func (h *UploadHandler) GenerateURL(c *gin.Context) {
	url, err := h.uploadService.GenerateUploadURL(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Upload принимает сырое тело запроса. Токен в пути заменяет аутентификацию.
func (h *UploadHandler) Upload(c *gin.Context) {
	// +1 байт, чтобы сервис сам увидел превышение лимита
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1)
	defer body.Close()

	storageID, err := h.uploadService.Upload(
		c.Request.Context(),
		c.Param("token"),
		c.ContentType(),
		c.Request.ContentLength,
		body,
	)
	if err != nil {
		h.log.Warn("Upload rejected", "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"storage_id": storageID})
}
