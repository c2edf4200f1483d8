package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Area is a top-level storage directory.
type Area string

const (
	AreaTemp            Area = "temp"
	AreaClothingImages  Area = "clothing_images"
	AreaProfilePictures Area = "profile_pictures"
	AreaOutfitCollages  Area = "outfit_collages"
)

var (
	ErrFileTooLarge   = errors.New("blob file too large")
	ErrInvalidArea    = errors.New("invalid blob area")
	ErrDisallowedType = errors.New("disallowed blob mime type")
	ErrExecutableFile = errors.New("executable files are not allowed")
	ErrInvalidPath    = errors.New("invalid blob path")
	ErrNotFound       = errors.New("blob not found")
)

// Upload is a size-checked, type-sniffed upload held in memory.
type Upload struct {
	Data     []byte
	MimeType string
}

type Service struct {
	rootDir        string
	maxUploadBytes int64
}

func NewService(rootDir string, maxUploadBytes int64) (*Service, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be > 0")
	}

	for _, area := range []Area{AreaTemp, AreaClothingImages, AreaProfilePictures, AreaOutfitCollages} {
		if err := os.MkdirAll(filepath.Join(rootDir, string(area)), 0o755); err != nil {
			return nil, fmt.Errorf("creating blob area %s: %w", area, err)
		}
	}

	return &Service{
		rootDir:        rootDir,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// ReadUpload reads at most maxBytes from src and accepts only PNG or JPEG
// content. A non-positive maxBytes falls back to the service limit.
func (s *Service) ReadUpload(src io.Reader, maxBytes int64) (*Upload, error) {
	if maxBytes <= 0 {
		maxBytes = s.maxUploadBytes
	}

	sniff := make([]byte, 512)
	sniffN, sniffErr := io.ReadFull(src, sniff)
	if sniffErr != nil && sniffErr != io.EOF && sniffErr != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading blob data: %w", sniffErr)
	}
	sniff = sniff[:sniffN]

	if isExecutableSignature(sniff) {
		return nil, ErrExecutableFile
	}

	mimeType := detectMimeType(sniff)
	if !isAllowedImageType(mimeType) {
		return nil, ErrDisallowedType
	}

	buf := bytes.NewBuffer(make([]byte, 0, sniffN))
	fullReader := io.MultiReader(bytes.NewReader(sniff), src)
	written, err := io.Copy(buf, io.LimitReader(fullReader, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading blob data: %w", err)
	}
	if written > maxBytes {
		return nil, ErrFileTooLarge
	}

	return &Upload{Data: buf.Bytes(), MimeType: mimeType}, nil
}

// Put atomically writes data as area/id.
func (s *Service) Put(area Area, id string, data []byte) error {
	rel, err := objectPath(area, id)
	if err != nil {
		return err
	}
	_, err = s.Write(rel, bytes.NewReader(data))
	return err
}

// Promote moves a staged object out of the temp area. It fails with
// ErrNotFound when nothing is staged under id, so a second promotion of the
// same id is reported rather than ignored.
func (s *Service) Promote(id string, dest Area) error {
	if dest == AreaTemp {
		return ErrInvalidArea
	}

	srcAbs, err := s.absObjectPath(AreaTemp, id)
	if err != nil {
		return err
	}
	dstAbs, err := s.absObjectPath(dest, id)
	if err != nil {
		return err
	}

	if err := os.Rename(srcAbs, dstAbs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("promoting blob %s: %w", id, err)
	}
	return nil
}

func (s *Service) Exists(area Area, id string) (bool, error) {
	abs, err := s.absObjectPath(area, id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking blob %s: %w", id, err)
	}
	return true, nil
}

// OpenObject opens area/id for reading. Missing objects return ErrNotFound.
func (s *Service) OpenObject(area Area, id string) (*os.File, error) {
	rel, err := objectPath(area, id)
	if err != nil {
		return nil, err
	}
	f, err := s.Open(rel)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *Service) DeleteObject(area Area, id string) error {
	rel, err := objectPath(area, id)
	if err != nil {
		return err
	}
	return s.Delete(rel)
}

// SweepTemp deletes staged objects last modified before cutoff and returns
// how many were removed.
func (s *Service) SweepTemp(cutoff time.Time) (int, error) {
	dir := filepath.Join(s.rootDir, string(AreaTemp))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("listing temp area: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("removing stale temp blob %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (s *Service) Open(storagePath string) (*os.File, error) {
	absPath, err := s.resolveStoragePath(storagePath)
	if err != nil {
		return nil, err
	}
	return os.Open(absPath)
}

func (s *Service) Write(storagePath string, src io.Reader) (int64, error) {
	absPath, err := s.resolveStoragePath(storagePath)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating blob directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(absPath), ".blob-write-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temporary blob file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	written, err := io.Copy(tmpFile, src)
	if err != nil {
		return 0, fmt.Errorf("writing blob file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("closing temporary blob file: %w", err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		return 0, fmt.Errorf("finalizing blob file: %w", err)
	}

	return written, nil
}

func (s *Service) Delete(storagePath string) error {
	absPath, err := s.resolveStoragePath(storagePath)
	if err != nil {
		return err
	}

	err = os.Remove(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting blob file: %w", err)
	}

	return nil
}

func (s *Service) absObjectPath(area Area, id string) (string, error) {
	rel, err := objectPath(area, id)
	if err != nil {
		return "", err
	}
	return s.resolveStoragePath(rel)
}

func (s *Service) resolveStoragePath(storagePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(storagePath))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", ErrInvalidPath
	}

	return filepath.Join(s.rootDir, clean), nil
}

func ValidArea(area Area) bool {
	switch area {
	case AreaTemp, AreaClothingImages, AreaProfilePictures, AreaOutfitCollages:
		return true
	default:
		return false
	}
}

// objectPath maps (area, id) to a relative path. Ids are restricted to
// [A-Za-z0-9_-] so they can never address outside their area.
func objectPath(area Area, id string) (string, error) {
	if !ValidArea(area) {
		return "", ErrInvalidArea
	}
	if !validObjectID(id) {
		return "", ErrInvalidPath
	}
	return string(area) + "/" + id, nil
}

func validObjectID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func detectMimeType(sniff []byte) string {
	if len(sniff) == 0 {
		return "application/octet-stream"
	}

	return trimMimeParams(http.DetectContentType(sniff))
}

func isExecutableSignature(sniff []byte) bool {
	if len(sniff) < 2 {
		return false
	}

	if sniff[0] == 'M' && sniff[1] == 'Z' {
		return true // PE/COFF (Windows)
	}
	if len(sniff) >= 4 {
		if bytes.Equal(sniff[:4], []byte{0x7f, 'E', 'L', 'F'}) {
			return true // ELF
		}

		machoMagics := [][]byte{
			{0xfe, 0xed, 0xfa, 0xce},
			{0xce, 0xfa, 0xed, 0xfe},
			{0xfe, 0xed, 0xfa, 0xcf},
			{0xcf, 0xfa, 0xed, 0xfe},
			{0xca, 0xfe, 0xba, 0xbe},
			{0xbe, 0xba, 0xfe, 0xca},
		}
		for _, magic := range machoMagics {
			if bytes.Equal(sniff[:4], magic) {
				return true
			}
		}
	}

	if sniff[0] == '#' && sniff[1] == '!' {
		return true // shebang scripts
	}

	return false
}

func trimMimeParams(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}

func isAllowedImageType(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png", "image/jpeg":
		return true
	default:
		return false
	}
}
