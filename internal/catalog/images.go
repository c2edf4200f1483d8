package catalog

import (
	"context"
	"log/slog"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
)

// Images is the slice of the ingestion pipeline the catalog relies on.
type Images interface {
	Staged(imageID string) (bool, error)
	Promote(imageID string, dest blob.Area) error
	DeleteIfOrphaned(ctx context.Context, area blob.Area, imageID string) (bool, error)
	ComposeCollage(ctx context.Context, items []imaging.CollageItem) (string, error)
	URL(area blob.Area, imageID string) string
}

// collectImage removes an image no row references any more. The owning row
// is already gone, so failures are logged rather than returned.
func collectImage(ctx context.Context, images Images, area blob.Area, imageID string) {
	removed, err := images.DeleteIfOrphaned(ctx, area, imageID)
	if err != nil {
		slog.Error("error collecting orphaned image", "error", err, "area", area, "image_id", imageID)
		return
	}
	if removed {
		slog.Debug("collected orphaned image", "area", area, "image_id", imageID)
	}
}
