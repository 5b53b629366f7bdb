package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"photodrop/internal/common"
	"photodrop/internal/server/models"
	"photodrop/internal/server/services"

	"github.com/gin-gonic/gin"
)

// errorResponse is the JSON error body: {"detail": "..."}.
type errorResponse struct {
	Detail string `json:"detail"`
}

// writeError maps sentinel errors to HTTP statuses. Unknown errors become a
// generic 500 so that internals never leak into responses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
	case errors.Is(err, common.ErrorDuplicateEmail):
		c.JSON(http.StatusBadRequest, errorResponse{Detail: common.ErrorDuplicateEmail.Error()})
	case errors.Is(err, common.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Detail: common.ErrInvalidCredentials.Error()})
	case errors.Is(err, common.ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, errorResponse{Detail: common.ErrInvalidRefreshToken.Error()})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse{Detail: "not authenticated"})
	case errors.Is(err, common.ErrorForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Detail: common.ErrorForbidden.Error()})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Detail: common.ErrorNotFound.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
	}
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func toTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    p.ExpiresIn,
	}
}

type sessionResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DeviceName *string    `json:"device_name"`
	IPAddress  *string    `json:"ip_address"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
}

func toSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		DeviceName: optString(s.DeviceName),
		IPAddress:  optString(s.IPAddress),
		IssuedAt:   s.IssuedAt,
		ExpiresAt:  s.ExpiresAt,
		RevokedAt:  s.RevokedAt,
	}
}

type photoResponse struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	S3Key       string            `json:"s3_key"`
	MimeType    string            `json:"mime_type"`
	SizeBytes   int64             `json:"size_bytes"`
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Lat         *float64          `json:"lat"`
	Lng         *float64          `json:"lng"`
	AccuracyM   *float64          `json:"accuracy_m"`
	Address     *string           `json:"address"`
	Exif        map[string]any    `json:"exif"`
	Visibility  models.Visibility `json:"visibility"`
	TakenAt     *time.Time        `json:"taken_at"`
	CreatedAt   time.Time         `json:"created_at"`
	URL         string            `json:"url"`
}

// urlResolver turns a photo into a time-limited download URL; "" means no
// URL is available.
type urlResolver func(ctx context.Context, p *models.Photo) string

func toPhotoResponse(ctx context.Context, p *models.Photo, resolve urlResolver) photoResponse {
	return photoResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		S3Key:       p.StorageKey,
		MimeType:    p.MimeType,
		SizeBytes:   p.SizeBytes,
		Title:       p.Title,
		Description: p.Description,
		Lat:         p.Lat,
		Lng:         p.Lng,
		AccuracyM:   p.AccuracyM,
		Address:     p.Address,
		Exif:        p.Exif,
		Visibility:  p.Visibility,
		TakenAt:     p.TakenAt,
		CreatedAt:   p.CreatedAt,
		URL:         resolve(ctx, p),
	}
}

func toPhotoResponses(ctx context.Context, items []*models.Photo, resolve urlResolver) []photoResponse {
	out := make([]photoResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toPhotoResponse(ctx, p, resolve))
	}
	return out
}

type paginatedResponse struct {
	Items   []photoResponse `json:"items"`
	Total   int64           `json:"total"`
	Skip    int             `json:"skip"`
	Limit   int             `json:"limit"`
	HasNext bool            `json:"has_next"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
