package account

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
)

const defaultPicturePrefix = "default-"

// IsDefaultPicture reports whether id names a shared default picture.
// Default pictures are never garbage-collected.
func IsDefaultPicture(id string) bool {
	return strings.HasPrefix(id, defaultPicturePrefix)
}

// DefaultPictureID is the storage id of the default picture called name.
func DefaultPictureID(name string) string {
	return defaultPicturePrefix + name
}

// DefaultPictures is the fixed set of profile pictures users can pick from.
// Each is stored in the profile area as default-<name>.
type DefaultPictures struct {
	names []string
	blobs *blob.Service
}

func NewDefaultPictures(blobs *blob.Service, names []string) (*DefaultPictures, error) {
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || slices.Contains(clean, n) {
			continue
		}
		clean = append(clean, n)
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("at least one default profile picture is required")
	}
	return &DefaultPictures{names: clean, blobs: blobs}, nil
}

func (d *DefaultPictures) Names() []string {
	return slices.Clone(d.names)
}

// Resolve maps a picture name to its storage id.
func (d *DefaultPictures) Resolve(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(d.names, name) {
		return "", false
	}
	return DefaultPictureID(name), true
}

func (d *DefaultPictures) Random() string {
	return DefaultPictureID(d.names[rand.IntN(len(d.names))])
}

// Seed renders any default picture missing from storage.
func (d *DefaultPictures) Seed() error {
	for _, name := range d.names {
		id := defaultPicturePrefix + name
		ok, err := d.blobs.Exists(blob.AreaProfilePictures, id)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		data, err := blob.EncodePNG(renderAvatar(name, constants.ProfilePictureMaxEdge))
		if err != nil {
			return err
		}
		if err := d.blobs.Put(blob.AreaProfilePictures, id, data); err != nil {
			return fmt.Errorf("seeding default picture %s: %w", name, err)
		}
		slog.Info("seeded default profile picture", "name", name)
	}
	return nil
}

// renderAvatar draws a head-and-shoulders silhouette on a background whose
// hue is derived from name.
func renderAvatar(name string, size int) *image.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	hue := float64(h.Sum32() % 360)

	bg := hsvToNRGBA(hue, 0.45, 0.85)
	fg := hsvToNRGBA(hue, 0.25, 0.98)

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	s := float64(size)
	headX, headY, headR := s/2, s*0.38, s*0.18
	bodyY, bodyR := s*1.02, s*0.42

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			c := bg
			if math.Hypot(fx-headX, fy-headY) <= headR || math.Hypot(fx-headX, fy-bodyY) <= bodyR {
				c = fg
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func hsvToNRGBA(h, s, v float64) color.NRGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.NRGBA{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
		A: 255,
	}
}

func (m *Manager) DefaultProfilePictures() []string {
	return m.pictures.Names()
}

// SetDefaultProfilePicture switches the user to a default picture and drops
// their custom one, if any.
func (m *Manager) SetDefaultProfilePicture(ctx context.Context, userID, name string) (string, error) {
	id, ok := m.pictures.Resolve(name)
	if !ok {
		return "", ErrProfilePictureInvalid.WithMessagef(
			"The profile picture must be one of: %s.", strings.Join(m.pictures.Names(), ", "))
	}

	user, err := m.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := m.setPicture(ctx, userID, id); err != nil {
		return "", err
	}
	m.dropCustomPicture(ctx, userID, user.GetProfilePicture())
	return id, nil
}

// UploadProfilePicture stores a custom picture scaled to the profile edge.
// The file is staged, the row updated and only then the file promoted.
func (m *Manager) UploadProfilePicture(ctx context.Context, userID, filename string, src io.Reader) (string, error) {
	user, err := m.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	img, err := m.images.ReadImage(filename, src, m.maxPicture)
	if err != nil {
		return "", err
	}
	data, err := blob.EncodePNG(blob.Thumbnail(img, constants.ProfilePictureMaxEdge))
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := m.blobs.Put(blob.AreaTemp, id, data); err != nil {
		return "", fmt.Errorf("staging profile picture: %w", err)
	}

	if err := m.setPicture(ctx, userID, id); err != nil {
		_ = m.blobs.DeleteObject(blob.AreaTemp, id)
		return "", err
	}
	if err := m.images.Promote(id, blob.AreaProfilePictures); err != nil {
		return "", err
	}

	m.dropCustomPicture(ctx, userID, user.GetProfilePicture())
	return id, nil
}

// RemoveProfilePicture deletes the custom picture and falls back to a random
// default.
func (m *Manager) RemoveProfilePicture(ctx context.Context, userID string) (string, error) {
	user, err := m.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	current := user.GetProfilePicture()
	if current == "" || IsDefaultPicture(current) {
		return "", ErrProfilePictureNotSet
	}

	id := m.pictures.Random()
	if err := m.setPicture(ctx, userID, id); err != nil {
		return "", err
	}
	m.dropCustomPicture(ctx, userID, current)
	return id, nil
}

func (m *Manager) setPicture(ctx context.Context, userID, id string) error {
	err := m.users.UpdateProfilePicture(ctx, userID, &id)
	if errors.Is(err, db.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (m *Manager) dropCustomPicture(ctx context.Context, userID, id string) {
	if id == "" || IsDefaultPicture(id) {
		return
	}
	if _, err := m.images.DeleteIfOrphaned(ctx, blob.AreaProfilePictures, id); err != nil {
		slog.Error("error removing old profile picture", "error", err, "user_id", userID, "image_id", id)
	}
}
