package services

import (
	"bytes"
	"io"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// EXIFData holds the subset of EXIF metadata the upload pipeline uses:
// pixel dimensions, orientation for thumbnail rotation, and the capture
// time used for storage layout and photo ordering.
type EXIFData struct {
	Orientation int
	Width       *int
	Height      *int
	DateTaken   *time.Time
}

// EXIFService extracts EXIF metadata from images
type EXIFService struct{}

// NewEXIFService creates a new EXIFService
func NewEXIFService() *EXIFService {
	return &EXIFService{}
}

// ExtractFromBytes extracts EXIF data from image bytes
func (s *EXIFService) ExtractFromBytes(data []byte) (*EXIFData, error) {
	return s.ExtractFromReader(bytes.NewReader(data))
}

// ExtractFromReader extracts EXIF data from an io.Reader. Images without
// EXIF data are not an error; they yield defaults with orientation 1.
func (s *EXIFService) ExtractFromReader(r io.Reader) (*EXIFData, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return &EXIFData{Orientation: 1}, nil
	}

	result := &EXIFData{Orientation: 1}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if val, err := tag.Int(0); err == nil && val >= 1 && val <= 8 {
			result.Orientation = val
		}
	}

	if tag, err := x.Get(exif.PixelXDimension); err == nil {
		if val, err := tag.Int(0); err == nil {
			result.Width = &val
		}
	} else if tag, err := x.Get(exif.ImageWidth); err == nil {
		if val, err := tag.Int(0); err == nil {
			result.Width = &val
		}
	}

	if tag, err := x.Get(exif.PixelYDimension); err == nil {
		if val, err := tag.Int(0); err == nil {
			result.Height = &val
		}
	} else if tag, err := x.Get(exif.ImageLength); err == nil {
		if val, err := tag.Int(0); err == nil {
			result.Height = &val
		}
	}

	if tm, err := x.DateTime(); err == nil {
		result.DateTaken = &tm
	}

	return result, nil
}
