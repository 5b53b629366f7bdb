package photos

import (
	"context"

	"photodrop/internal/server/access"
	"photodrop/internal/server/models"
)

// ListFilter narrows a paginated photo listing. Viewer drives the per-row
// visibility rules; OwnerID and Visibility are optional caller filters.
type ListFilter struct {
	Viewer     access.Viewer
	OwnerID    *string
	Visibility *models.Visibility
	Skip       int
	Limit      int
}

// NearbyQuery describes a proximity search around a point.
type NearbyQuery struct {
	Viewer   access.Viewer
	Lat      float64
	Lng      float64
	RadiusKm float64
	Limit    int
}

// Repository defines persistence operations for photo records.
type Repository interface {
	Create(ctx context.Context, photo *models.Photo) (*models.Photo, error)
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	List(ctx context.Context, f ListFilter) ([]*models.Photo, int64, error)
	Update(ctx context.Context, id, ownerID string, upd models.PhotoUpdate) (*models.Photo, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	Nearby(ctx context.Context, q NearbyQuery) ([]*models.Photo, error)
}
