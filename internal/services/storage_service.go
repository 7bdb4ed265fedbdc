package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/collagesync/server/internal/models"
)

// PhotoStorageService stores originals on disk under Year/Month folders
type PhotoStorageService struct {
	basePath          string
	allowedExtensions map[string]bool
	maxFileSizeBytes  int64
}

// NewPhotoStorageService creates a new PhotoStorageService
func NewPhotoStorageService(basePath string, allowedExtensions []string, maxFileSizeMB int64) (*PhotoStorageService, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, err
	}

	extSet := make(map[string]bool)
	if len(allowedExtensions) == 0 {
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".heif", ".bmp", ".tiff", ".tif"} {
			extSet[ext] = true
		}
	} else {
		for _, ext := range allowedExtensions {
			extSet[strings.ToLower(ext)] = true
		}
	}

	return &PhotoStorageService{
		basePath:          absPath,
		allowedExtensions: extSet,
		maxFileSizeBytes:  maxFileSizeMB * 1024 * 1024,
	}, nil
}

// Store saves a file and returns the relative storage path
func (s *PhotoStorageService) Store(reader io.Reader, originalFilename string, dateTaken time.Time, fileSize int64) (string, error) {
	if fileSize > s.maxFileSizeBytes {
		return "", models.ErrFileTooLarge
	}

	sanitized := sanitizeFilename(originalFilename)
	ext := strings.ToLower(filepath.Ext(sanitized))
	if !s.allowedExtensions[ext] {
		return "", models.ErrInvalidExtension
	}

	relativeFolderPath := filepath.Join(dateTaken.Format("2006"), dateTaken.Format("01"))
	absoluteFolderPath := filepath.Join(s.basePath, relativeFolderPath)
	if err := os.MkdirAll(absoluteFolderPath, 0755); err != nil {
		return "", err
	}

	uniqueFilename := generateUniqueFilename(sanitized, absoluteFolderPath)
	relativeFilePath := filepath.Join(relativeFolderPath, uniqueFilename)
	absoluteFilePath := filepath.Join(s.basePath, relativeFilePath)

	if !strings.HasPrefix(absoluteFilePath, s.basePath) {
		return "", models.ErrPathTraversal
	}

	file, err := os.OpenFile(absoluteFilePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(absoluteFilePath)
		return "", err
	}

	// Stored paths always use forward slashes
	return strings.ReplaceAll(relativeFilePath, string(os.PathSeparator), "/"), nil
}

// Delete removes a file by its stored path
func (s *PhotoStorageService) Delete(storedPath string) bool {
	if strings.TrimSpace(storedPath) == "" {
		return false
	}

	fullPath, err := s.GetFullPath(storedPath)
	if err != nil {
		return false
	}

	return os.Remove(fullPath) == nil
}

// GetFullPath returns the absolute path for a stored path
func (s *PhotoStorageService) GetFullPath(storedPath string) (string, error) {
	if strings.TrimSpace(storedPath) == "" {
		return "", fmt.Errorf("stored path cannot be empty")
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(storedPath))

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, s.basePath) {
		return "", models.ErrPathTraversal
	}

	return absPath, nil
}

// Exists checks if a file exists at the given stored path
func (s *PhotoStorageService) Exists(storedPath string) bool {
	fullPath, err := s.GetFullPath(storedPath)
	if err != nil {
		return false
	}

	_, err = os.Stat(fullPath)
	return err == nil
}

// sanitizeFilename removes path components and invalid characters
func sanitizeFilename(filename string) string {
	name := filepath.Base(filename)

	replacer := strings.NewReplacer(
		"..", "",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(name)

	const maxLength = 200
	if len(name) > maxLength {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		if len(base) > maxLength-len(ext) {
			base = base[:maxLength-len(ext)]
		}
		name = base + ext
	}

	return name
}

// generateUniqueFilename appends a counter suffix until the name is free
func generateUniqueFilename(filename, folderPath string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	candidate := filename
	counter := 1

	for {
		if _, err := os.Stat(filepath.Join(folderPath, candidate)); os.IsNotExist(err) {
			return candidate
		}

		candidate = fmt.Sprintf("%s_%03d%s", base, counter, ext)
		counter++

		if counter > 9999 {
			return fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext)
		}
	}
}
