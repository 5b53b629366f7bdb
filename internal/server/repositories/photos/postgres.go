// Package photos provides a PostgreSQL-backed repository for photo records,
// including paginated listings and haversine proximity search. Visibility
// rules from the access package are mirrored here as SQL predicates so that
// filtering happens per row inside the database.
package photos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"photodrop/internal/common"
	"photodrop/internal/dbx"
	"photodrop/internal/server/access"
	"photodrop/internal/server/models"
)

const photoColumns = `id, user_id, storage_key, mime_type, size_bytes, title, description,
	       lat, lng, accuracy_m, address, exif, visibility, taken_at, created_at`

// haversineExpr computes great-circle distance in kilometers between the row
// and a query point. Placeholder indexes are substituted by the caller.
const haversineExpr = `2 * 6371 * asin(sqrt(
		pow(sin(radians(lat - %[1]s) / 2), 2) +
		cos(radians(%[1]s)) * cos(radians(lat)) * pow(sin(radians(lng - %[2]s) / 2), 2)))`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new photo row.
func (r *PostgresRepository) Create(ctx context.Context, photo *models.Photo) (*models.Photo, error) {
	exif, err := marshalExif(photo.Exif)
	if err != nil {
		return nil, fmt.Errorf("encoding exif: %w", err)
	}

	query := `
		INSERT INTO photos (id, user_id, storage_key, mime_type, size_bytes, title, description,
		                    lat, lng, accuracy_m, address, exif, visibility, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		photo.ID, photo.UserID, photo.StorageKey, photo.MimeType, photo.SizeBytes,
		photo.Title, photo.Description, photo.Lat, photo.Lng, photo.AccuracyM,
		photo.Address, exif, photo.Visibility, photo.TakenAt).Scan(&photo.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return photo, nil
}

// GetByID returns the photo with the given id, or common.ErrorNotFound.
// Access control is the caller's concern; the row is returned regardless of
// visibility so that 403 and 404 can be told apart.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return photo, nil
}

// List returns one page of photos visible to the viewer, newest first, plus
// the total count before pagination.
func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*models.Photo, int64, error) {
	var args []any
	conds := []string{listVisibilityCond(f.Viewer, &args)}

	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Visibility != nil {
		args = append(args, *f.Visibility)
		conds = append(conds, fmt.Sprintf("visibility = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM photos` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	args = append(args, f.Limit)
	limitPos := len(args)
	args = append(args, f.Skip)
	offsetPos := len(args)

	query := `SELECT ` + photoColumns + ` FROM photos` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", limitPos, offsetPos)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items, err := scanPhotos(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Update changes the provided fields of an owned photo and returns the
// resulting row. An id that does not exist or is not owned by ownerID maps
// to common.ErrorNotFound.
func (r *PostgresRepository) Update(ctx context.Context, id, ownerID string, upd models.PhotoUpdate) (*models.Photo, error) {
	args := []any{id, ownerID}
	var sets []string

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Title != nil {
		appendSet("title", *upd.Title)
	}
	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.Visibility != nil {
		appendSet("visibility", *upd.Visibility)
	}
	if upd.Address != nil {
		appendSet("address", *upd.Address)
	}

	var query string
	if len(sets) == 0 {
		// Nothing to change; still verify existence and ownership.
		query = `SELECT ` + photoColumns + ` FROM photos WHERE id = $1 AND user_id = $2`
	} else {
		query = `UPDATE photos SET ` + strings.Join(sets, ", ") +
			` WHERE id = $1 AND user_id = $2 RETURNING ` + photoColumns
	}

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return photo, nil
}

// Delete removes an owned photo row and reports whether one was found.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	query := `DELETE FROM photos WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

// Nearby returns photos with coordinates within q.RadiusKm of the query
// point, filtered by the proximity visibility rules, newest first.
func (r *PostgresRepository) Nearby(ctx context.Context, q NearbyQuery) ([]*models.Photo, error) {
	args := []any{q.Lat, q.Lng}
	distance := fmt.Sprintf(haversineExpr, "$1", "$2")

	args = append(args, q.RadiusKm)
	conds := []string{
		"lat IS NOT NULL AND lng IS NOT NULL",
		fmt.Sprintf("%s <= $%d", distance, len(args)),
		nearbyVisibilityCond(q.Viewer, &args),
	}

	args = append(args, q.Limit)
	query := `SELECT ` + photoColumns + ` FROM photos WHERE ` +
		strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

// listVisibilityCond mirrors access.CanList: public rows for everyone, plus
// all of the viewer's own rows.
func listVisibilityCond(v access.Viewer, args *[]any) string {
	if !v.Authenticated() {
		return "visibility = 'public'"
	}
	*args = append(*args, v.UserID())
	return fmt.Sprintf("(visibility = 'public' OR user_id = $%d)", len(*args))
}

// nearbyVisibilityCond mirrors access.CanViewNearby: authenticated viewers
// also see unlisted rows.
func nearbyVisibilityCond(v access.Viewer, args *[]any) string {
	if !v.Authenticated() {
		return "visibility = 'public'"
	}
	*args = append(*args, v.UserID())
	return fmt.Sprintf("(visibility IN ('public', 'unlisted') OR user_id = $%d)", len(*args))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	p := &models.Photo{}
	var exif []byte
	err := row.Scan(&p.ID, &p.UserID, &p.StorageKey, &p.MimeType, &p.SizeBytes,
		&p.Title, &p.Description, &p.Lat, &p.Lng, &p.AccuracyM, &p.Address,
		&exif, &p.Visibility, &p.TakenAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(exif) > 0 {
		if err := json.Unmarshal(exif, &p.Exif); err != nil {
			return nil, fmt.Errorf("decoding exif: %w", err)
		}
	}
	return p, nil
}

func scanPhotos(rows *sql.Rows) ([]*models.Photo, error) {
	result := []*models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func marshalExif(exif map[string]any) (any, error) {
	if len(exif) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(exif)
	if err != nil {
		return nil, err
	}
	return b, nil
}
