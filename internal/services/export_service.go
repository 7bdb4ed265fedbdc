package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/disintegration/imaging"

	"github.com/collagesync/server/internal/collage"
	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/repository"
)

// Export raster parameters. Canvas coordinates are points; the export
// renders at exportScale pixels per point. Polaroid frames use the classic
// proportions with a deeper bottom border. Caption text is not rasterized.
const (
	exportScale      = 2.0
	exportMargin     = 40.0
	polaroidBorder   = 8.0
	polaroidBottom   = 28.0
	exportBackground = "f2ede4"
)

// ErrExportEmpty is returned when the collage has no renderable items
var ErrExportEmpty = models.CollageItemError{Message: "collage has no items to export"}

// ExportService flattens a collage into a single PNG
type ExportService struct {
	items     repository.CollageItemRepo
	photos    repository.PhotoRepo
	storage   *PhotoStorageService
	thumbnail *ThumbnailService
	logger    *observability.Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	items repository.CollageItemRepo,
	photos repository.PhotoRepo,
	storage *PhotoStorageService,
	thumbnail *ThumbnailService,
) *ExportService {
	return &ExportService{
		items:     items,
		photos:    photos,
		storage:   storage,
		thumbnail: thumbnail,
		logger:    observability.WithField("component", "export_service"),
	}
}

// sprite is one rendered item ready to paste: the rotated image plus the
// canvas-space center it is positioned about.
type sprite struct {
	img     image.Image
	centerX float64
	centerY float64
}

// Export renders the collage to PNG bytes. Items are drawn in z order,
// scaled and rotated about their centers the same way the canvas renders
// them. Items whose photo file cannot be read are skipped with a log line
// rather than failing the whole export.
func (s *ExportService) Export(ctx context.Context, albumID *string) ([]byte, error) {
	items, err := s.items.GetByAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrExportEmpty
	}

	photoIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.PhotoID] {
			seen[item.PhotoID] = true
			photoIDs = append(photoIDs, item.PhotoID)
		}
	}
	photos, err := s.photos.GetByIDs(ctx, photoIDs)
	if err != nil {
		return nil, err
	}
	photoByID := make(map[string]*models.Photo, len(photos))
	for _, p := range photos {
		photoByID[p.ID] = p
	}

	// GetByAlbum returns items already sorted by z_index
	sprites := make([]sprite, 0, len(items))
	for _, item := range items {
		photo, ok := photoByID[item.PhotoID]
		if !ok {
			continue
		}
		sp, err := s.renderItem(item, photo)
		if err != nil {
			s.logger.WithContext(ctx).Warnf("skipping item %s in export: %v", item.ID, err)
			continue
		}
		sprites = append(sprites, *sp)
	}
	if len(sprites) == 0 {
		return nil, ErrExportEmpty
	}

	canvas := compose(sprites)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return buf.Bytes(), nil
}

// renderItem loads the photo, fits it to the item's scaled box, applies the
// display mode frame, and rotates the result about its center.
func (s *ExportService) renderItem(item *models.CollageItem, photo *models.Photo) (*sprite, error) {
	img, err := s.loadPhoto(photo)
	if err != nil {
		return nil, err
	}

	boxW := int(math.Round(collage.BaseItemWidth * item.Scale * exportScale))
	boxH := int(math.Round(collage.BaseItemHeight * item.Scale * exportScale))
	fitted := imaging.Fit(img, boxW, boxH, imaging.Lanczos)

	framed := fitted
	if item.DisplayMode == models.DisplayModePolaroid {
		framed = frameAsPolaroid(fitted, item.Scale)
	}

	rotated := framed
	if item.Rotation != 0 {
		// Canvas rotation is clockwise-positive; imaging rotates
		// counterclockwise for positive angles
		rotated = imaging.Rotate(framed, -item.Rotation, color.NRGBA{})
	}

	return &sprite{
		img:     rotated,
		centerX: (item.PositionX + collage.BaseItemWidth/2) * exportScale,
		centerY: (item.PositionY + collage.BaseItemHeight/2) * exportScale,
	}, nil
}

// loadPhoto reads the thumbnail when one exists, falling back to the
// original file. Thumbnails are pre-oriented so no EXIF pass is needed.
func (s *ExportService) loadPhoto(photo *models.Photo) (image.Image, error) {
	if photo.ThumbnailPath != "" {
		data, err := os.ReadFile(s.thumbnail.GetThumbnailPath(photo.ThumbnailPath))
		if err == nil {
			if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
				return img, nil
			}
		}
	}

	fullPath, err := s.storage.GetFullPath(photo.StoredPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data, photo.StoredPath, 1)
}

// frameAsPolaroid surrounds the image with the white polaroid border
func frameAsPolaroid(img image.Image, itemScale float64) *image.NRGBA {
	border := int(math.Round(polaroidBorder * itemScale * exportScale))
	bottom := int(math.Round(polaroidBottom * itemScale * exportScale))

	b := img.Bounds()
	framed := imaging.New(b.Dx()+2*border, b.Dy()+border+bottom, color.White)
	return imaging.Paste(framed, img, image.Pt(border, border))
}

// compose sizes the output to the sprites' bounding box plus margin and
// pastes them in order
func compose(sprites []sprite) image.Image {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, sp := range sprites {
		halfW := float64(sp.img.Bounds().Dx()) / 2
		halfH := float64(sp.img.Bounds().Dy()) / 2
		minX = math.Min(minX, sp.centerX-halfW)
		minY = math.Min(minY, sp.centerY-halfH)
		maxX = math.Max(maxX, sp.centerX+halfW)
		maxY = math.Max(maxY, sp.centerY+halfH)
	}

	margin := exportMargin * exportScale
	width := int(math.Ceil(maxX-minX + 2*margin))
	height := int(math.Ceil(maxY-minY + 2*margin))

	canvas := imaging.New(width, height, parseHexColor(exportBackground))
	for _, sp := range sprites {
		x := int(math.Round(sp.centerX - minX + margin - float64(sp.img.Bounds().Dx())/2))
		y := int(math.Round(sp.centerY - minY + margin - float64(sp.img.Bounds().Dy())/2))
		canvas = imaging.Overlay(canvas, sp.img, image.Pt(x, y), 1.0)
	}
	return canvas
}

// parseHexColor decodes a 6-digit hex color
func parseHexColor(s string) color.NRGBA {
	var r, g, b uint8
	fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b)
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
