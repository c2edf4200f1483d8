package imaging

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/mediaurl"
	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

// ReferenceCounter reports how many catalog rows point at an image id.
type ReferenceCounter interface {
	CountReferences(ctx context.Context, imageID string) (int, error)
}

type Config struct {
	BaseURL          string
	UploadMaxBytes   int64
	InferenceTimeout time.Duration
	ColorClusters    int
}

// Preview is a staged image plus the attributes inferred from it. Color and
// Category are suggestions for the client form.
type Preview struct {
	ImageID  string          `json:"image_id"`
	ImageURL string          `json:"image_url"`
	Color    string          `json:"image_color"`
	Category models.Category `json:"image_category"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
}

// CollageItem is a promoted clothing image together with where it goes on
// the canvas.
type CollageItem struct {
	ImageID   string
	Placement Placement
}

// Pipeline stages uploads into temp storage and moves them into permanent
// areas once a catalog row claims them.
type Pipeline struct {
	blobs      *blob.Service
	refs       ReferenceCounter
	segmenter  Segmenter
	classifier *Classifier
	cfg        Config
}

func NewPipeline(blobs *blob.Service, refs ReferenceCounter, segmenter Segmenter, classifier *Classifier, cfg Config) *Pipeline {
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = 20 * time.Second
	}
	if cfg.ColorClusters <= 0 {
		cfg.ColorClusters = DefaultColorClusters
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = blobs.MaxUploadBytes()
	}
	return &Pipeline{
		blobs:      blobs,
		refs:       refs,
		segmenter:  segmenter,
		classifier: classifier,
		cfg:        cfg,
	}
}

// StagePreview validates an upload, removes its background, crops it to the
// garment and stores the result in temp storage. Type and size are checked
// before any decoding happens.
func (p *Pipeline) StagePreview(ctx context.Context, filename string, src io.Reader) (*Preview, error) {
	img, err := p.ReadImage(filename, src, p.cfg.UploadMaxBytes)
	if err != nil {
		return nil, err
	}

	inferCtx, cancel := context.WithTimeout(ctx, p.cfg.InferenceTimeout)
	defer cancel()

	segmented, err := p.segmenter.Segment(inferCtx, img)
	if err != nil {
		return nil, p.inferenceError(ctx, inferCtx, "segmenting image", err)
	}

	cropped, err := CropToForeground(segmented)
	if err != nil {
		return nil, err
	}

	var (
		color    string
		category models.Category
	)
	g, gctx := errgroup.WithContext(inferCtx)
	g.Go(func() error {
		var err error
		color, err = DominantColor(cropped, p.cfg.ColorClusters)
		return err
	})
	g.Go(func() error {
		var err error
		category, err = p.classifier.Classify(gctx, cropped)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, p.inferenceError(ctx, inferCtx, "inferring attributes", err)
	}

	data, err := blob.EncodePNG(cropped)
	if err != nil {
		return nil, err
	}

	imageID := uuid.NewString()
	if err := p.blobs.Put(blob.AreaTemp, imageID, data); err != nil {
		return nil, fmt.Errorf("staging image: %w", err)
	}

	slog.Debug("staged preview image", "image_id", imageID, "color", color, "category", category)

	b := cropped.Bounds()
	return &Preview{
		ImageID:  imageID,
		ImageURL: mediaurl.Image(p.cfg.BaseURL, string(blob.AreaTemp), imageID),
		Color:    color,
		Category: category,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// ReadImage checks an uploaded file's name, size and content type and
// decodes it.
func (p *Pipeline) ReadImage(filename string, src io.Reader, maxBytes int64) (image.Image, error) {
	if !allowedExtension(filename) {
		return nil, ErrUnsupportedFileType
	}

	upload, err := p.blobs.ReadUpload(src, maxBytes)
	if err != nil {
		return nil, mapUploadError(err)
	}

	img, err := blob.DecodeImage(upload.Data)
	if errors.Is(err, blob.ErrTooManyPixels) {
		return nil, ErrFileTooLarge
	}
	if err != nil {
		return nil, ErrUnsupportedFileType
	}
	return img, nil
}

// inferenceError turns a deadline hit by the model into a retryable error
// while passing through cancellation by the caller.
func (p *Pipeline) inferenceError(parent, inferCtx context.Context, op string, err error) error {
	if errors.Is(err, ErrImageUnclear) {
		return err
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(inferCtx.Err(), context.DeadlineExceeded) {
		return ErrInferenceTimeout
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Staged reports whether imageID is waiting in temp storage.
func (p *Pipeline) Staged(imageID string) (bool, error) {
	ok, err := p.blobs.Exists(blob.AreaTemp, imageID)
	if errors.Is(err, blob.ErrInvalidPath) {
		return false, nil
	}
	return ok, err
}

// Promote moves a staged image into dest. It succeeds at most once per id;
// later calls fail with ErrImageNotFound.
func (p *Pipeline) Promote(imageID string, dest blob.Area) error {
	err := p.blobs.Promote(imageID, dest)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, blob.ErrNotFound), errors.Is(err, blob.ErrInvalidPath):
		return ErrImageNotFound
	default:
		return fmt.Errorf("promoting image %s: %w", imageID, err)
	}
}

// DeleteIfOrphaned removes area/imageID when no catalog row references it
// any more and reports whether the file was removed.
func (p *Pipeline) DeleteIfOrphaned(ctx context.Context, area blob.Area, imageID string) (bool, error) {
	if imageID == "" {
		return false, nil
	}

	n, err := p.refs.CountReferences(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("counting references to %s: %w", imageID, err)
	}
	if n > 0 {
		return false, nil
	}

	if err := p.blobs.DeleteObject(area, imageID); err != nil {
		return false, fmt.Errorf("deleting orphaned image %s: %w", imageID, err)
	}
	return true, nil
}

// ComposeCollage renders promoted clothing images into a new collage and
// stores it in the collage area. It returns the new collage id.
func (p *Pipeline) ComposeCollage(ctx context.Context, items []CollageItem) (string, error) {
	if len(items) == 0 || len(items) > MaxCollageLayers {
		return "", ErrCollageInvalid
	}

	layers := make([]Layer, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := p.loadImage(blob.AreaClothingImages, item.ImageID)
		if err != nil {
			return "", err
		}
		layers = append(layers, Layer{Image: img, Placement: item.Placement})
	}

	canvas, err := Compose(layers, CollageCanvasSize)
	if err != nil {
		return "", err
	}
	data, err := blob.EncodePNG(canvas)
	if err != nil {
		return "", err
	}

	collageID := uuid.NewString()
	if err := p.blobs.Put(blob.AreaOutfitCollages, collageID, data); err != nil {
		return "", fmt.Errorf("storing collage: %w", err)
	}
	return collageID, nil
}

func (p *Pipeline) URL(area blob.Area, imageID string) string {
	return mediaurl.Image(p.cfg.BaseURL, string(area), imageID)
}

func (p *Pipeline) loadImage(area blob.Area, imageID string) (image.Image, error) {
	f, err := p.blobs.OpenObject(area, imageID)
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidPath) {
		return nil, ErrImageNotFound.WithMessagef("Image %s is missing from storage.", imageID)
	}
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", imageID, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", imageID, err)
	}
	img, err := blob.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", imageID, err)
	}
	return img, nil
}

func allowedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

func mapUploadError(err error) error {
	switch {
	case errors.Is(err, blob.ErrFileTooLarge):
		return ErrFileTooLarge
	case errors.Is(err, blob.ErrDisallowedType), errors.Is(err, blob.ErrExecutableFile):
		return ErrUnsupportedFileType
	default:
		return fmt.Errorf("reading upload: %w", err)
	}
}
