package sessions

import (
	"context"

	"photodrop/internal/server/models"
)

// Repository defines persistence operations for login sessions.
type Repository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	ListActive(ctx context.Context) ([]*models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeOwned(ctx context.Context, id, userID string) (bool, error)
}
