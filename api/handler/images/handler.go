package images

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/api/common"
	"github.com/kinnrichard/image-uploader/api/middleware"
	"github.com/kinnrichard/image-uploader/database/models"
	imageSvc "github.com/kinnrichard/image-uploader/internal/services/image"
	"github.com/kinnrichard/image-uploader/utils"
)

// FormField 上传表单中的文件字段名
const FormField = "image"

// Handler 图片处理器
type Handler struct {
	uploads *imageSvc.UploadService
}

// NewHandler 创建图片处理器
func NewHandler(uploads *imageSvc.UploadService) *Handler {
	return &Handler{uploads: uploads}
}

// uploadedImage 上传成功后返回的图片摘要
type uploadedImage struct {
	ID           uint   `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
}

// listedImage 列表中的图片，附带访问地址
type listedImage struct {
	*models.Image
	URL string `json:"url"`
}

// bodyLimit 请求体上限，留出余量使超限的非图片文件仍能先报告类型错误
func (h *Handler) bodyLimit() int64 {
	return 2*h.uploads.MaxBytes() + 1<<20
}

// UploadImage 处理单文件上传
func (h *Handler) UploadImage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.bodyLimit())

	fileHeader, err := c.FormFile(FormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			common.RespondError(c, http.StatusBadRequest, "File too large")
		case errors.Is(err, http.ErrMissingFile):
			common.RespondError(c, http.StatusBadRequest, "No file uploaded")
		default:
			utils.LogIfDevf("[Upload] invalid multipart request: %v", err)
			common.RespondError(c, http.StatusBadRequest, "No file uploaded")
		}
		return
	}

	img, err := h.uploads.StoreUpload(c.Request.Context(), userID, fileHeader)
	if err != nil {
		switch {
		case errors.Is(err, imageSvc.ErrUnsupportedType):
			common.RespondError(c, http.StatusBadRequest, "Only image files are allowed")
		case errors.Is(err, imageSvc.ErrTooLarge):
			common.RespondError(c, http.StatusBadRequest, "File too large")
		case errors.Is(err, imageSvc.ErrNoFile):
			common.RespondError(c, http.StatusBadRequest, "No file uploaded")
		default:
			if !utils.IsClientDisconnect(err) {
				utils.Logger().Error().Err(err).Uint("user_id", userID).Msg("Upload failed")
			}
			common.RespondError(c, http.StatusInternalServerError, "Failed to save image")
		}
		return
	}

	common.RespondSuccessMessage(c, "Image uploaded successfully", gin.H{
		"image": uploadedImage{
			ID:           img.ID,
			Filename:     img.Filename,
			OriginalName: img.OriginalName,
			URL:          utils.BuildImageURL(img.Filename),
		},
	})
}

// ListImages 列出当前用户的图片，最新在前
func (h *Handler) ListImages(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	list, err := h.uploads.ListImages(c.Request.Context(), userID)
	if err != nil {
		utils.Logger().Error().Err(err).Uint("user_id", userID).Msg("Failed to list images")
		common.RespondError(c, http.StatusInternalServerError, "Failed to retrieve images")
		return
	}

	result := make([]listedImage, 0, len(list))
	for _, img := range list {
		result = append(result, listedImage{
			Image: img,
			URL:   utils.BuildImageURL(img.Filename),
		})
	}

	common.RespondSuccess(c, gin.H{"images": result})
}

// ServeImage 公开访问已上传的图片，支持 Range
func (h *Handler) ServeImage(c *gin.Context) {
	filename := c.Param("filename")

	rs, contentType, err := h.uploads.OpenImage(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, imageSvc.ErrNotFound) {
			common.RespondError(c, http.StatusNotFound, "Image not found")
			return
		}
		utils.Logger().Error().Err(err).Str("filename", filename).Msg("Failed to open image")
		common.RespondError(c, http.StatusInternalServerError, "Failed to read image")
		return
	}
	if closer, ok := rs.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	c.Header("Content-Type", contentType)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(c.Writer, c.Request, filename, time.Time{}, rs)
}
