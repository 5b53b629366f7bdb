package repomanager

import (
	"context"
	"database/sql"

	"photodrop/internal/dbx"
	"photodrop/internal/server/repositories/photos"
	"photodrop/internal/server/repositories/sessions"
	"photodrop/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same code against *sql.DB or an open transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Photos(db dbx.DBTX) photos.Repository
}
