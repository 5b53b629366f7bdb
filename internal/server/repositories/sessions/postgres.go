// Package sessions provides a PostgreSQL-backed repository for login
// sessions, each holding the bcrypt hash of one refresh token.
package sessions

import (
	"context"
	"database/sql"
	"fmt"

	"photodrop/internal/dbx"
	"photodrop/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new session row. Issuance time comes from the database
// clock so that expiry comparisons stay consistent.
func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, device_name, ip_address, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING issued_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.ID, session.UserID, session.RefreshTokenHash,
		session.UserAgent, session.DeviceName, session.IPAddress,
		session.ExpiresAt).Scan(&session.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

// ListActive returns all sessions that are neither revoked nor expired.
// Callers verify refresh-token candidates against each row's hash; the hash
// is salted, so there is no indexable token column to look up instead.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token_hash,
		       COALESCE(user_agent, ''), COALESCE(device_name, ''), COALESCE(ip_address, ''),
		       issued_at, expires_at, revoked_at
		FROM sessions
		WHERE revoked_at IS NULL AND expires_at > now()
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListByUser returns the user's non-revoked sessions, newest issued first.
// Expired sessions stay listed until revoked.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token_hash,
		       COALESCE(user_agent, ''), COALESCE(device_name, ''), COALESCE(ip_address, ''),
		       issued_at, expires_at, revoked_at
		FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY issued_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// Revoke marks the session revoked. Revoking an already-revoked session is
// a no-op that still reports the row as found (last write wins, no CAS).
func (r *PostgresRepository) Revoke(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE sessions SET revoked_at = COALESCE(revoked_at, now())
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

// RevokeOwned is Revoke scoped to sessions owned by userID, for the
// device-management endpoint.
func (r *PostgresRepository) RevokeOwned(ctx context.Context, id, userID string) (bool, error) {
	query := `
		UPDATE sessions SET revoked_at = COALESCE(revoked_at, now())
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

func scanSessions(rows *sql.Rows) ([]*models.Session, error) {
	var result []*models.Session
	for rows.Next() {
		s := &models.Session{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash,
			&s.UserAgent, &s.DeviceName, &s.IPAddress,
			&s.IssuedAt, &s.ExpiresAt, &s.RevokedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if result == nil {
		result = []*models.Session{}
	}
	return result, nil
}
