package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
)

// Thumbnails are capped at this dimension. The collage canvas renders items
// at 150pt base size, so 500px covers retina displays at max item scale.
const (
	ThumbMaxDim  = 500
	ThumbQuality = 85
)

// ThumbnailResult contains the generated thumbnail path and the oriented
// pixel dimensions of the source image.
type ThumbnailResult struct {
	Path   string
	Width  int
	Height int
}

// ThumbnailService handles thumbnail generation
type ThumbnailService struct {
	basePath string
}

// NewThumbnailService creates a new ThumbnailService
func NewThumbnailService(basePath string) *ThumbnailService {
	return &ThumbnailService{basePath: basePath}
}

// Generate creates the thumbnail for a photo and returns its relative path
// plus the source dimensions. The thumbnail lives next to the original in a
// .thumbs directory, named {photoID}_thumb.jpg.
func (s *ThumbnailService) Generate(imageData []byte, photoID, storedPath string, orientation int) (*ThumbnailResult, error) {
	img, err := DecodeImage(imageData, storedPath, orientation)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	result := &ThumbnailResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	thumbDir := filepath.Join(filepath.Dir(storedPath), ".thumbs")
	if err := os.MkdirAll(filepath.Join(s.basePath, thumbDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	resized := imaging.Fit(img, ThumbMaxDim, ThumbMaxDim, imaging.Lanczos)

	relativePath := filepath.Join(thumbDir, photoID+"_thumb.jpg")
	fullPath := filepath.Join(s.basePath, relativePath)

	out, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, resized, &jpeg.Options{Quality: ThumbQuality}); err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	result.Path = relativePath
	return result, nil
}

// GetThumbnailPath returns the full filesystem path for a thumbnail
func (s *ThumbnailService) GetThumbnailPath(relativePath string) string {
	return filepath.Join(s.basePath, relativePath)
}

// DeleteThumbnail removes a photo's thumbnail. Missing files are not an
// error.
func (s *ThumbnailService) DeleteThumbnail(relativePath string) {
	if relativePath != "" {
		os.Remove(filepath.Join(s.basePath, relativePath))
	}
}

// DecodeImage decodes image bytes into an orientation-corrected image.
// HEIC/HEIF files go through goheif; everything else through image.Decode.
func DecodeImage(imageData []byte, filename string, orientation int) (image.Image, error) {
	var img image.Image
	var err error

	if IsHEIC(filename) {
		img, err = goheif.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("failed to decode HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
	}

	return applyOrientation(img, orientation), nil
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Rotate270(imaging.FlipH(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Rotate90(imaging.FlipH(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// IsSupportedFormat checks if the file extension is supported for thumbnail generation
func IsSupportedFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
		".bmp":  true,
		".tiff": true,
		".tif":  true,
		".heic": true,
		".heif": true,
	}
	return supported[ext]
}

// IsHEIC checks if the file is HEIC/HEIF format (requires special handling)
func IsHEIC(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".heic" || ext == ".heif"
}
