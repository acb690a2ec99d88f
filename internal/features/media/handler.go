package media

import (
	"context"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/pkg/cloudinary"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
)

const formField = "files"

// Uploader stores files. *cloudinary.Service satisfies it.
type Uploader interface {
	UploadImage(ctx context.Context, file multipart.File, filename string) (*cloudinary.UploadResult, error)
	UploadDocument(ctx context.Context, file multipart.File, filename string) (*cloudinary.UploadResult, error)
	Delete(ctx context.Context, publicID, resourceType string) error
}

type Handler struct {
	uploader Uploader
	log      logger.Logger
}

// NewHandler creates the media handler. A nil uploader disables uploads.
func NewHandler(uploader Uploader, log logger.Logger) *Handler {
	return &Handler{uploader: uploader, log: log}
}

type upload struct {
	header *multipart.FileHeader
	result *cloudinary.UploadResult
}

// UploadImages godoc
// @Summary Upload item photos
// @Description Uploads up to 5 images; the response can be sent as an item's images.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "Images"
// @Success 201 {object} response.APIResponse{data=[]items.Image}
// @Failure 400 {object} response.APIResponse
// @Failure 503 {object} response.APIResponse
// @Router /media/images [post]
func (h *Handler) UploadImages(c *gin.Context) {
	uploads, ok := h.upload(c, items.MaxImages, cloudinary.ValidateImageFile, h.uploaderImage)
	if !ok {
		return
	}

	images := make([]items.Image, len(uploads))
	for i, u := range uploads {
		images[i] = items.Image{URL: u.result.URL, PublicID: u.result.PublicID}
	}
	response.Created(c, images, "Images uploaded successfully")
}

// UploadDocuments godoc
// @Summary Upload claim verification documents
// @Description Uploads up to 5 documents; the response can be sent as a claim's verificationDocuments.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "Documents"
// @Success 201 {object} response.APIResponse{data=[]items.Document}
// @Failure 400 {object} response.APIResponse
// @Failure 503 {object} response.APIResponse
// @Router /media/documents [post]
func (h *Handler) UploadDocuments(c *gin.Context) {
	uploads, ok := h.upload(c, items.MaxDocuments, cloudinary.ValidateDocumentFile, h.uploaderDocument)
	if !ok {
		return
	}

	docs := make([]items.Document, len(uploads))
	for i, u := range uploads {
		docs[i] = items.Document{
			URL:      u.result.URL,
			Name:     u.header.Filename,
			Type:     u.header.Header.Get("Content-Type"),
			Size:     u.header.Size,
			PublicID: u.result.PublicID,
		}
	}
	response.Created(c, docs, "Documents uploaded successfully")
}

type uploadFunc func(ctx context.Context, file multipart.File, filename string) (*cloudinary.UploadResult, error)

func (h *Handler) uploaderImage(ctx context.Context, file multipart.File, filename string) (*cloudinary.UploadResult, error) {
	return h.uploader.UploadImage(ctx, file, filename)
}

func (h *Handler) uploaderDocument(ctx context.Context, file multipart.File, filename string) (*cloudinary.UploadResult, error) {
	return h.uploader.UploadDocument(ctx, file, filename)
}

// upload validates every file before sending any, and removes the files
// already stored when a later one fails.
func (h *Handler) upload(c *gin.Context, limit int, validate func(*multipart.FileHeader) error, send uploadFunc) ([]upload, bool) {
	if h.uploader == nil {
		response.ServiceUnavailable(c, "File uploads are not configured", "UPLOADS_DISABLED")
		return nil, false
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "Multipart form with files is required", "MISSING_FILE")
		return nil, false
	}
	headers := form.File[formField]
	if len(headers) == 0 {
		response.BadRequest(c, "At least one file is required", "MISSING_FILE")
		return nil, false
	}
	if len(headers) > limit {
		response.BadRequest(c, "Too many files", "TOO_MANY_FILES")
		return nil, false
	}
	for _, header := range headers {
		if err := validate(header); err != nil {
			response.BadRequest(c, err.Error(), "INVALID_FILE")
			return nil, false
		}
	}

	ctx := c.Request.Context()
	uploads := make([]upload, 0, len(headers))
	for _, header := range headers {
		result, err := h.send(ctx, header, send)
		if err != nil {
			h.log.ErrorContext(ctx, "upload failed", "filename", header.Filename, "error", err)
			h.rollback(ctx, uploads)
			response.InternalServerError(c, "Failed to upload file", "UPLOAD_FAILED")
			return nil, false
		}
		uploads = append(uploads, upload{header: header, result: result})
	}
	return uploads, true
}

func (h *Handler) send(ctx context.Context, header *multipart.FileHeader, send uploadFunc) (*cloudinary.UploadResult, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return send(ctx, file, header.Filename)
}

func (h *Handler) rollback(ctx context.Context, uploads []upload) {
	for _, u := range uploads {
		if err := h.uploader.Delete(ctx, u.result.PublicID, u.result.ResourceType); err != nil {
			h.log.WarnContext(ctx, "remove partial upload", "public_id", u.result.PublicID, "error", err)
		}
	}
}
