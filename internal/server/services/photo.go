package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"photodrop/internal/common"
	"photodrop/internal/dbx"
	"photodrop/internal/logging"
	"photodrop/internal/server/access"
	"photodrop/internal/server/config"
	"photodrop/internal/server/models"
	"photodrop/internal/server/repositories/photos"
	"photodrop/internal/server/repositories/repomanager"

	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
)

// presignValidity is how long generated download URLs stay valid.
const presignValidity = time.Hour

// Listing and proximity query bounds.
const (
	defaultListLimit   = 100
	maxListLimit       = 1000
	defaultNearbyLimit = 50
	maxNearbyLimit     = 100
	minRadiusKm        = 0.1
	maxRadiusKm        = 100
)

// allowedMimeTypes maps accepted upload content types to the storage key
// extension used when the original filename has none.
var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Test seams.
var (
	decodeExif = exif.Decode
	runInTx    = dbx.WithTx
)

// ObjectStore is the slice of the storage layer the photo service needs.
type ObjectStore interface {
	Configured() bool
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// UploadInput carries one photo upload: the file bytes plus optional
// caller-supplied metadata. Nil optionals may still be filled in from the
// image's EXIF data.
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
	Title       *string
	Description *string
	Address     *string
	Lat         *float64
	Lng         *float64
	AccuracyM   *float64
	Visibility  *models.Visibility
	TakenAt     *time.Time
}

// ListParams narrows and pages a photo listing.
type ListParams struct {
	OwnerID    *string
	Visibility *models.Visibility
	Skip       int
	Limit      int
}

// PhotoService implements the photo lifecycle: upload to object storage
// plus a database row, visibility-filtered reads, owner-only writes, and
// proximity search.
type PhotoService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	store          ObjectStore
	logger         logging.Logger
	maxUploadBytes int64
}

// NewPhotoService constructs a PhotoService.
func NewPhotoService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, cfg *config.Config, l logging.Logger) *PhotoService {
	return &PhotoService{
		db:             db,
		repomanager:    m,
		store:          store,
		logger:         l.With("module", "photo_service"),
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Upload validates the file, writes it to object storage under a fresh key,
// and inserts the photo row. The object is written first; if the row insert
// then fails the object is orphaned, which is acceptable since the row is
// the source of truth for existence.
func (s *PhotoService) Upload(ctx context.Context, ownerID string, in UploadInput) (*models.Photo, error) {
	if !s.store.Configured() {
		return nil, common.ErrStorageNotConfigured
	}

	size := int64(len(in.Data))
	if size == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrorValidation)
	}
	if size > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: file size exceeds %d bytes", common.ErrorValidation, s.maxUploadBytes)
	}

	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	defaultExt, ok := allowedMimeTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type %q", common.ErrorValidation, in.ContentType)
	}

	if (in.Lat == nil) != (in.Lng == nil) {
		return nil, fmt.Errorf("%w: lat and lng must be provided together", common.ErrorValidation)
	}
	if in.Lat != nil {
		if err := validateCoordinates(*in.Lat, *in.Lng); err != nil {
			return nil, err
		}
	}

	visibility := models.VisibilityPrivate
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			return nil, fmt.Errorf("%w: unknown visibility %q", common.ErrorValidation, *in.Visibility)
		}
		visibility = *in.Visibility
	}

	photo := &models.Photo{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		MimeType:    contentType,
		SizeBytes:   size,
		Title:       in.Title,
		Description: in.Description,
		Lat:         in.Lat,
		Lng:         in.Lng,
		AccuracyM:   in.AccuracyM,
		Address:     in.Address,
		Visibility:  visibility,
		TakenAt:     in.TakenAt,
	}

	if contentType == "image/jpeg" {
		s.applyExif(photo, in.Data)
	}

	ext := strings.ToLower(filepath.Ext(in.FileName))
	if ext == "" {
		ext = defaultExt
	}
	photo.StorageKey = "photos/" + photo.ID + ext

	if err := s.store.Upload(ctx, photo.StorageKey, in.Data, contentType); err != nil {
		return nil, fmt.Errorf("uploading object: %w", err)
	}

	created, err := s.repomanager.Photos(s.db).Create(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("error creating photo: %w", err)
	}
	return created, nil
}

// List returns one page of photos visible to the viewer, newest first, plus
// the total match count before pagination.
func (s *PhotoService) List(ctx context.Context, viewer access.Viewer, p ListParams) ([]*models.Photo, int64, error) {
	if p.Skip < 0 {
		return nil, 0, fmt.Errorf("%w: skip must not be negative", common.ErrorValidation)
	}
	if p.Limit == 0 {
		p.Limit = defaultListLimit
	}
	if p.Limit < 1 || p.Limit > maxListLimit {
		return nil, 0, fmt.Errorf("%w: limit must be between 1 and %d", common.ErrorValidation, maxListLimit)
	}
	if p.Visibility != nil && !p.Visibility.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown visibility %q", common.ErrorValidation, *p.Visibility)
	}

	return s.repomanager.Photos(s.db).List(ctx, photos.ListFilter{
		Viewer:     viewer,
		OwnerID:    p.OwnerID,
		Visibility: p.Visibility,
		Skip:       p.Skip,
		Limit:      p.Limit,
	})
}

// Get returns a single photo. A missing id maps to common.ErrorNotFound; an
// existing row the viewer may not see maps to common.ErrorForbidden.
func (s *PhotoService) Get(ctx context.Context, viewer access.Viewer, id string) (*models.Photo, error) {
	photo, err := s.repomanager.Photos(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(viewer, photo.UserID, photo.Visibility) {
		return nil, common.ErrorForbidden
	}
	return photo, nil
}

// Update applies owner-only metadata changes. A photo that does not exist
// or belongs to someone else maps to common.ErrorNotFound.
func (s *PhotoService) Update(ctx context.Context, ownerID, id string, upd models.PhotoUpdate) (*models.Photo, error) {
	if upd.Visibility != nil && !upd.Visibility.Valid() {
		return nil, fmt.Errorf("%w: unknown visibility %q", common.ErrorValidation, *upd.Visibility)
	}
	return s.repomanager.Photos(s.db).Update(ctx, id, ownerID, upd)
}

// Delete removes an owned photo. The ownership check and row delete run in
// one transaction; the stored object is deleted best-effort afterwards, a
// failure there is logged and not surfaced.
func (s *PhotoService) Delete(ctx context.Context, ownerID, id string) error {
	var storageKey string

	err := runInTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Photos(tx)

		photo, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if photo.UserID != ownerID {
			// Non-owners cannot tell the photo exists.
			return common.ErrorNotFound
		}
		storageKey = photo.StorageKey

		found, err := repo.Delete(ctx, id, ownerID)
		if err != nil {
			return fmt.Errorf("error deleting photo: %w", err)
		}
		if !found {
			return common.ErrorNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.store.Configured() {
		if err := s.store.Delete(ctx, storageKey); err != nil {
			s.logger.Error(ctx, "deleting stored object", "key", storageKey, "error", err)
		}
	}
	return nil
}

// Nearby returns photos with coordinates within radiusKm of the point,
// filtered by the proximity visibility rules, newest first.
func (s *PhotoService) Nearby(ctx context.Context, viewer access.Viewer, lat, lng, radiusKm float64, limit int) ([]*models.Photo, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= minRadiusKm || radiusKm > maxRadiusKm {
		return nil, fmt.Errorf("%w: radius_km must be greater than %v and at most %v", common.ErrorValidation, minRadiusKm, maxRadiusKm)
	}
	if limit == 0 {
		limit = defaultNearbyLimit
	}
	if limit < 1 || limit > maxNearbyLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", common.ErrorValidation, maxNearbyLimit)
	}

	return s.repomanager.Photos(s.db).Nearby(ctx, photos.NearbyQuery{
		Viewer:   viewer,
		Lat:      lat,
		Lng:      lng,
		RadiusKm: radiusKm,
		Limit:    limit,
	})
}

// DownloadURL returns a presigned URL for the photo's object, or "" when
// storage is not configured or presigning fails. URL generation is never a
// reason to fail the request carrying it.
func (s *PhotoService) DownloadURL(ctx context.Context, photo *models.Photo) string {
	if !s.store.Configured() {
		return ""
	}
	url, err := s.store.PresignGet(ctx, photo.StorageKey, presignValidity)
	if err != nil {
		s.logger.Error(ctx, "presigning download url", "key", photo.StorageKey, "error", err)
		return ""
	}
	return url
}

// applyExif fills TakenAt, coordinates and the raw EXIF map from the JPEG
// bytes, without overriding values the caller supplied. Any parse failure
// leaves the photo as-is; plenty of valid JPEGs carry no EXIF at all.
func (s *PhotoService) applyExif(photo *models.Photo, data []byte) {
	x, err := decodeExif(bytes.NewReader(data))
	if err != nil {
		return
	}

	meta := map[string]any{}
	for _, field := range []exif.FieldName{exif.Make, exif.Model, exif.DateTimeOriginal} {
		if tag, err := x.Get(field); err == nil {
			if v, err := tag.StringVal(); err == nil {
				meta[string(field)] = v
			}
		}
	}
	if len(meta) > 0 {
		photo.Exif = meta
	}

	if photo.TakenAt == nil {
		if tm, err := x.DateTime(); err == nil {
			photo.TakenAt = &tm
		}
	}
	if photo.Lat == nil && photo.Lng == nil {
		if lat, lng, err := x.LatLong(); err == nil && validateCoordinates(lat, lng) == nil {
			photo.Lat = &lat
			photo.Lng = &lng
		}
	}
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat must be between -90 and 90", common.ErrorValidation)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: lng must be between -180 and 180", common.ErrorValidation)
	}
	return nil
}
