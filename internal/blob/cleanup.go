package blob

import (
	"context"
	"log/slog"
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
)

const (
	DefaultCleanupInterval = 1 * time.Hour
	DefaultTempTTL         = 24 * time.Hour
)

// ReferenceLister enumerates the catalog rows that point at stored images.
type ReferenceLister interface {
	ListReferences(ctx context.Context) ([]db.ImageRef, error)
}

// CleanupService reaps staged images nobody claimed within the TTL and
// audits that every referenced permanent image still exists. Missing files
// are logged, never patched.
type CleanupService struct {
	blobs    *Service
	refs     ReferenceLister
	interval time.Duration
	tempTTL  time.Duration
}

func NewCleanupService(blobs *Service, refs ReferenceLister, interval, tempTTL time.Duration) *CleanupService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if tempTTL <= 0 {
		tempTTL = DefaultTempTTL
	}
	return &CleanupService{
		blobs:    blobs,
		refs:     refs,
		interval: interval,
		tempTTL:  tempTTL,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("starting blob cleanup service", "component", "temp_reaper", "interval", s.interval, "temp_ttl", s.tempTTL)

	s.runCleanup(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping blob cleanup service", "component", "temp_reaper")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *CleanupService) runCleanup(ctx context.Context) {
	removed, err := s.blobs.SweepTemp(time.Now().Add(-s.tempTTL))
	if err != nil {
		slog.Error("error sweeping temp images", "component", "temp_reaper", "error", err)
	} else if removed > 0 {
		slog.Info("deleted stale temp images", "component", "temp_reaper", "count", removed)
	}

	s.audit(ctx)
}

// audit returns the number of references whose file is missing.
func (s *CleanupService) audit(ctx context.Context) int {
	if s.refs == nil {
		return 0
	}

	refs, err := s.refs.ListReferences(ctx)
	if err != nil {
		slog.Error("error listing image references", "component", "image_audit", "error", err)
		return 0
	}

	missing := 0
	for _, ref := range refs {
		ok, err := s.blobs.Exists(Area(ref.Area), ref.ImageID)
		if err != nil {
			slog.Warn("error checking referenced image", "component", "image_audit", "error", err, "area", ref.Area, "image_id", ref.ImageID)
			continue
		}
		if !ok {
			missing++
			slog.Error("referenced image is missing", "component", "image_audit", "area", ref.Area, "image_id", ref.ImageID, "owner_id", ref.OwnerID)
		}
	}
	return missing
}
