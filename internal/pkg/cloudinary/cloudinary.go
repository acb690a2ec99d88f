package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	ResourceImage = "image"
	ResourceRaw   = "raw"
)

// Service handles Cloudinary upload operations
type Service struct {
	cld          *cloudinary.Cloudinary
	uploadFolder string
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	FileSize     int64  `json:"size"`
	Format       string `json:"format"`
}

// File validation constants
var (
	AllowedImageTypes    = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	AllowedDocumentTypes = []string{".pdf", ".jpg", ".jpeg", ".png", ".webp", ".doc", ".docx"}

	MaxImageSize    = int64(5 * 1024 * 1024)  // 5MB
	MaxDocumentSize = int64(10 * 1024 * 1024) // 10MB
)

// NewService creates a new Cloudinary service instance
func NewService(cloudName, apiKey, apiSecret, uploadFolder string) (*Service, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials are required")
	}

	cloudinaryURL := fmt.Sprintf("cloudinary://%s:%s@%s", apiKey, apiSecret, cloudName)

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	if uploadFolder == "" {
		uploadFolder = "lostfound"
	}

	return &Service{
		cld:          cld,
		uploadFolder: uploadFolder,
	}, nil
}

// UploadImage uploads an item photo
func (s *Service) UploadImage(ctx context.Context, file multipart.File, filename string) (*UploadResult, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.uploadFolder + "/items",
		ResourceType: ResourceImage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	return &UploadResult{
		URL:          result.SecureURL,
		PublicID:     result.PublicID,
		ResourceType: ResourceImage,
		Width:        result.Width,
		Height:       result.Height,
		FileSize:     int64(result.Bytes),
		Format:       result.Format,
	}, nil
}

// UploadDocument uploads a claim verification document. Images stay image
// resources so they can be previewed; everything else is stored raw.
func (s *Service) UploadDocument(ctx context.Context, file multipart.File, filename string) (*UploadResult, error) {
	resourceType := ResourceRaw
	if isAllowedExtension(getFileExtension(filename), AllowedImageTypes) {
		resourceType = ResourceImage
	}

	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.uploadFolder + "/claims",
		ResourceType: resourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	return &UploadResult{
		URL:          result.SecureURL,
		PublicID:     result.PublicID,
		ResourceType: resourceType,
		FileSize:     int64(result.Bytes),
		Format:       result.Format,
	}, nil
}

// Delete removes an asset from Cloudinary
func (s *Service) Delete(ctx context.Context, publicID string, resourceType string) error {
	if publicID == "" {
		return errors.New("publicID is required")
	}

	if resourceType == "" {
		resourceType = ResourceImage
	}

	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	return nil
}

// ValidateImageFile validates an image file upload
func ValidateImageFile(header *multipart.FileHeader) error {
	if header.Size > MaxImageSize {
		return fmt.Errorf("image file size exceeds maximum allowed size of %d MB", MaxImageSize/(1024*1024))
	}

	ext := getFileExtension(header.Filename)
	if !isAllowedExtension(ext, AllowedImageTypes) {
		return fmt.Errorf("invalid image file type: %s. Allowed types: %s", ext, strings.Join(AllowedImageTypes, ", "))
	}

	return nil
}

// ValidateDocumentFile validates a verification document upload
func ValidateDocumentFile(header *multipart.FileHeader) error {
	if header.Size > MaxDocumentSize {
		return fmt.Errorf("document size exceeds maximum allowed size of %d MB", MaxDocumentSize/(1024*1024))
	}

	ext := getFileExtension(header.Filename)
	if !isAllowedExtension(ext, AllowedDocumentTypes) {
		return fmt.Errorf("invalid document type: %s. Allowed types: %s", ext, strings.Join(AllowedDocumentTypes, ", "))
	}

	return nil
}

// ResourceTypeFor guesses the Cloudinary resource type from a file name.
func ResourceTypeFor(filename string) string {
	if isAllowedExtension(getFileExtension(filename), AllowedImageTypes) {
		return ResourceImage
	}
	return ResourceRaw
}

func getFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func isAllowedExtension(ext string, allowedTypes []string) bool {
	for _, allowed := range allowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}
