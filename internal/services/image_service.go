package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type ImageService struct {
	cld *cloudinary.Cloudinary
}

func NewImageService() (*ImageService, error) {
	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("missing Cloudinary configuration")
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &ImageService{cld: cld}, nil
}

// UploadLogo uploads a testnet or faucet logo. The kind ("testnet" or
// "faucet") and owner name form the public ID so re-uploads overwrite.
func (s *ImageService) UploadLogo(file multipart.File, filename, kind, owner string) (string, error) {
	allowedTypes := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
		".svg":  true,
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedTypes[ext] {
		return "", fmt.Errorf("invalid file type: %s. Allowed types: jpg, jpeg, png, gif, webp, svg", ext)
	}

	publicID := fmt.Sprintf("logos/%s_%s", kind, owner)

	uploadParams := uploader.UploadParams{
		PublicID:       publicID,
		Folder:         "nettrack/logos",
		Overwrite:      &[]bool{true}[0],
		ResourceType:   "image",
		Transformation: "c_fit,h_256,w_256/q_auto,f_auto",
	}

	result, err := s.cld.Upload.Upload(context.Background(), file, uploadParams)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return result.SecureURL, nil
}

// UploadAvatar uploads a profile picture, cropped to the face
func (s *ImageService) UploadAvatar(file multipart.File, filename string, username string) (string, error) {
	allowedTypes := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedTypes[ext] {
		return "", fmt.Errorf("invalid file type: %s. Allowed types: jpg, jpeg, png, webp", ext)
	}

	uploadParams := uploader.UploadParams{
		PublicID:       fmt.Sprintf("avatars/user_%s", username),
		Folder:         "nettrack/avatars",
		Overwrite:      &[]bool{true}[0],
		ResourceType:   "image",
		Transformation: "c_fill,g_face,h_300,w_300/q_auto,f_auto",
	}

	result, err := s.cld.Upload.Upload(context.Background(), file, uploadParams)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return result.SecureURL, nil
}

// DeleteImage deletes an uploaded asset from Cloudinary
func (s *ImageService) DeleteImage(publicID string) error {
	_, err := s.cld.Upload.Destroy(context.Background(), uploader.DestroyParams{
		PublicID: publicID,
	})
	return err
}

// ValidateImageFile validates if the uploaded file is a valid image
func (s *ImageService) ValidateImageFile(file multipart.File, maxSize int64) error {
	file.Seek(0, 0)

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if int64(len(data)) > maxSize {
		return fmt.Errorf("file too large: %d bytes (max %d bytes)", len(data), maxSize)
	}

	// Reset file pointer for later use
	file.Seek(0, 0)

	return nil
}
