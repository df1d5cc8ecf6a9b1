package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	// Base directory for storing uploaded files
	uploadBaseDir = "uploads"
	// Base URL for serving files
	baseURL = "/uploads"
	// Maximum file size (10MB)
	maxFileSize = 10 * 1024 * 1024
	// Document photos wider or taller than this are downscaled
	maxDocumentDimension = 1600
)

var allowedDocumentExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// ValidateDocumentFile checks the size and extension of an uploaded document
func ValidateDocumentFile(filename string, size int64) error {
	if size > maxFileSize {
		return fmt.Errorf("file too large. Maximum size is %d bytes", maxFileSize)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedDocumentExts[ext] {
		return fmt.Errorf("unsupported document format. Allowed formats: jpg, jpeg, png, pdf")
	}
	return nil
}

// SaveDocumentFile stores a partner document under uploads/documents/<partner>
// and returns its public URL. Photos are downscaled to keep ID card scans small.
func SaveDocumentFile(partnerHex string, filename string, data []byte) (string, error) {
	if err := ValidateDocumentFile(filename, int64(len(data))); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" {
		resized, err := downscaleImage(data, ext)
		if err != nil {
			return "", err
		}
		data = resized
	}

	subDir := filepath.Join("documents", partnerHex)
	name := uuid.New().String() + ext
	fullPath := filepath.Join(uploadBaseDir, subDir, name)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %v", filepath.Dir(fullPath), err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %v", fullPath, err)
	}

	return fmt.Sprintf("%s/documents/%s/%s", baseURL, partnerHex, name), nil
}

func downscaleImage(data []byte, ext string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}

	b := img.Bounds()
	if b.Dx() <= maxDocumentDimension && b.Dy() <= maxDocumentDimension {
		return data, nil
	}

	img = imaging.Fit(img, maxDocumentDimension, maxDocumentDimension, imaging.Lanczos)

	format := imaging.JPEG
	if ext == ".png" {
		format = imaging.PNG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	return buf.Bytes(), nil
}
