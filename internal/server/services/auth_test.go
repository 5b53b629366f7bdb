package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"photodrop/internal/common"
	"photodrop/internal/dbx"
	"photodrop/internal/logging"
	"photodrop/internal/server/auth"
	"photodrop/internal/server/config"
	"photodrop/internal/server/models"
	photosrepo "photodrop/internal/server/repositories/photos"
	"photodrop/internal/server/repositories/repomanager"
	sessionsrepo "photodrop/internal/server/repositories/sessions"
	usersrepo "photodrop/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  30 * time.Minute,
		RefreshTokenValidityDuration: 720 * time.Hour,
		MaxUploadBytes:               5 << 20,
	}
}

func newAuthService(t *testing.T, rm repomanager.RepositoryManager) *AuthService {
	t.Helper()
	var db *sql.DB
	return NewAuthService(db, rm, testConfig(), testLogger())
}

type fakeUsersRepo struct {
	createIn  *models.User
	createErr error

	byEmailOut *models.User
	byEmailErr error

	byIDOut *models.User
	byIDErr error

	updateIn  *models.User
	updateOut *models.User
	updateErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.createIn = u
	if f.createErr != nil {
		return nil, f.createErr
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	f.updateIn = u
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateOut != nil {
		return f.updateOut, nil
	}
	return u, nil
}

type fakeSessionsRepo struct {
	created   []*models.Session
	createErr error

	activeOut []*models.Session
	activeErr error

	byUserOut []*models.Session
	byUserErr error

	revokedIDs []string
	revokeErr  error

	revokeOwnedFound bool
	revokeOwnedErr   error
}

func (f *fakeSessionsRepo) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	s.IssuedAt = time.Now()
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeSessionsRepo) ListActive(ctx context.Context) ([]*models.Session, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.activeOut, nil
}

func (f *fakeSessionsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	if f.byUserErr != nil {
		return nil, f.byUserErr
	}
	return f.byUserOut, nil
}

func (f *fakeSessionsRepo) Revoke(ctx context.Context, id string) (bool, error) {
	if f.revokeErr != nil {
		return false, f.revokeErr
	}
	f.revokedIDs = append(f.revokedIDs, id)
	return true, nil
}

func (f *fakeSessionsRepo) RevokeOwned(ctx context.Context, id, userID string) (bool, error) {
	if f.revokeOwnedErr != nil {
		return false, f.revokeOwnedErr
	}
	if f.revokeOwnedFound {
		f.revokedIDs = append(f.revokedIDs, id)
	}
	return f.revokeOwnedFound, nil
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	se *fakeSessionsRepo
	p  *fakePhotosRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository { return m.se }
func (m *fakeRepoManager) Photos(db dbx.DBTX) photosrepo.Repository     { return m.p }

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	h, err := auth.HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret error: %v", err)
	}
	return h
}

// --- tests ---

func TestRegister_HashesPasswordAndNormalizesEmail(t *testing.T) {
	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s := newAuthService(t, rm)

	u, err := s.Register(context.Background(), "  Alice@Example.COM ", "alice", "password123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.ID == "" {
		t.Fatalf("empty user id")
	}
	if !auth.VerifySecret("password123", rm.u.createIn.PasswordHash) {
		t.Fatalf("stored hash does not verify the password")
	}
	if rm.u.createIn.PasswordHash == "password123" {
		t.Fatalf("password stored in plain text")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: common.ErrorDuplicateEmail}}
	s := newAuthService(t, rm)

	_, err := s.Register(context.Background(), "a@b.c", "a", "p")
	if !errors.Is(err, common.ErrorDuplicateEmail) {
		t.Fatalf("want ErrorDuplicateEmail, got %v", err)
	}
}

func TestRegister_RepoError(t *testing.T) {
	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: errBoom{}}}
	s := newAuthService(t, rm)

	_, err := s.Register(context.Background(), "a@b.c", "a", "p")
	if err == nil || !regexp.MustCompile(`error creating user: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestLogin_Flows(t *testing.T) {
	hash := mustHash(t, "right")

	// unknown email → invalid credentials
	rmNF := &fakeRepoManager{
		u:  &fakeUsersRepo{byEmailErr: common.ErrorNotFound},
		se: &fakeSessionsRepo{},
	}
	sNF := newAuthService(t, rmNF)
	if _, err := sNF.Login(context.Background(), "ghost@x.y", "p", models.SessionMetadata{}); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", err)
	}

	// repo failure → internal
	rmIE := &fakeRepoManager{
		u:  &fakeUsersRepo{byEmailErr: errBoom{}},
		se: &fakeSessionsRepo{},
	}
	sIE := newAuthService(t, rmIE)
	if _, err := sIE.Login(context.Background(), "a@b.c", "p", models.SessionMetadata{}); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("repo error: want ErrorInternal, got %v", err)
	}

	// wrong password → invalid credentials
	rmWP := &fakeRepoManager{
		u:  &fakeUsersRepo{byEmailOut: &models.User{ID: "u1", PasswordHash: hash}},
		se: &fakeSessionsRepo{},
	}
	sWP := newAuthService(t, rmWP)
	if _, err := sWP.Login(context.Background(), "a@b.c", "wrong", models.SessionMetadata{}); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}

	// success → token pair plus a persisted session
	rmOK := &fakeRepoManager{
		u:  &fakeUsersRepo{byEmailOut: &models.User{ID: "u1", PasswordHash: hash}},
		se: &fakeSessionsRepo{},
	}
	sOK := newAuthService(t, rmOK)
	pair, err := sOK.Login(context.Background(), "a@b.c", "right", models.SessionMetadata{UserAgent: "ua", IPAddress: "1.2.3.4"})
	if err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("Login success: pair=%+v err=%v", pair, err)
	}
	if pair.ExpiresIn != 1800 {
		t.Fatalf("expires_in: want 1800, got %d", pair.ExpiresIn)
	}
	if len(rmOK.se.created) != 1 {
		t.Fatalf("expected 1 session, got %d", len(rmOK.se.created))
	}
	session := rmOK.se.created[0]
	if session.UserID != "u1" {
		t.Fatalf("session user: %q", session.UserID)
	}
	if session.RefreshTokenHash == pair.RefreshToken {
		t.Fatalf("refresh token stored in plain text")
	}
	if !auth.VerifySecret(pair.RefreshToken, session.RefreshTokenHash) {
		t.Fatalf("session hash does not verify the refresh token")
	}
	if session.UserAgent != "ua" || session.IPAddress != "1.2.3.4" {
		t.Fatalf("session metadata not persisted: %+v", session)
	}
	if !session.ExpiresAt.After(time.Now().Add(719 * time.Hour)) {
		t.Fatalf("session expiry too early: %v", session.ExpiresAt)
	}
}

func TestRefresh_Success(t *testing.T) {
	token := "refresh-xyz"
	rm := &fakeRepoManager{
		se: &fakeSessionsRepo{
			activeOut: []*models.Session{
				{ID: "s0", UserID: "u0", RefreshTokenHash: mustHash(t, "other")},
				{ID: "s1", UserID: "u1", RefreshTokenHash: mustHash(t, token)},
			},
		},
	}
	s := newAuthService(t, rm)

	pair, err := s.Refresh(context.Background(), token)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	if pair.RefreshToken != token {
		t.Fatalf("refresh token rotated: %q", pair.RefreshToken)
	}
	if len(rm.se.created) != 0 {
		t.Fatalf("refresh must not create sessions")
	}

	userID, err := auth.GetUserIDFromToken(pair.AccessToken, []byte("k"))
	if err != nil || userID != "u1" {
		t.Fatalf("access token subject: (%q, %v)", userID, err)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	rm := &fakeRepoManager{
		se: &fakeSessionsRepo{activeOut: []*models.Session{{ID: "s1", RefreshTokenHash: mustHash(t, "other")}}},
	}
	s := newAuthService(t, rm)

	if _, err := s.Refresh(context.Background(), "nope"); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := s.Refresh(context.Background(), ""); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("empty token: want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_ListErr(t *testing.T) {
	rm := &fakeRepoManager{se: &fakeSessionsRepo{activeErr: errBoom{}}}
	s := newAuthService(t, rm)

	if _, err := s.Refresh(context.Background(), "r"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestLogout_RevokesMatchingSession(t *testing.T) {
	token := "refresh-xyz"
	rm := &fakeRepoManager{
		se: &fakeSessionsRepo{
			activeOut: []*models.Session{{ID: "s1", UserID: "u1", RefreshTokenHash: mustHash(t, token)}},
		},
	}
	s := newAuthService(t, rm)

	if err := s.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if len(rm.se.revokedIDs) != 1 || rm.se.revokedIDs[0] != "s1" {
		t.Fatalf("revoked ids: %v", rm.se.revokedIDs)
	}
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	// unknown token
	rm := &fakeRepoManager{se: &fakeSessionsRepo{}}
	if err := newAuthService(t, rm).Logout(context.Background(), "nope"); err != nil {
		t.Fatalf("unknown token: %v", err)
	}

	// revoke failure is logged, not surfaced
	rmErr := &fakeRepoManager{
		se: &fakeSessionsRepo{
			activeOut: []*models.Session{{ID: "s1", RefreshTokenHash: mustHash(t, "r")}},
			revokeErr: errBoom{},
		},
	}
	if err := newAuthService(t, rmErr).Logout(context.Background(), "r"); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
}

func TestAuthenticate_Flows(t *testing.T) {
	access, err := auth.GenerateToken("u1", []byte("k"), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	rmOK := &fakeRepoManager{u: &fakeUsersRepo{byIDOut: &models.User{ID: "u1", Email: "a@b.c"}}}
	u, err := newAuthService(t, rmOK).Authenticate(context.Background(), access)
	if err != nil || u.ID != "u1" {
		t.Fatalf("Authenticate success: (%+v, %v)", u, err)
	}

	if _, err := newAuthService(t, rmOK).Authenticate(context.Background(), "garbage"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("bad token: want ErrorUnauthorized, got %v", err)
	}

	rmNF := &fakeRepoManager{u: &fakeUsersRepo{byIDErr: common.ErrorNotFound}}
	if _, err := newAuthService(t, rmNF).Authenticate(context.Background(), access); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("deleted user: want ErrorUnauthorized, got %v", err)
	}

	rmIE := &fakeRepoManager{u: &fakeUsersRepo{byIDErr: errBoom{}}}
	if _, err := newAuthService(t, rmIE).Authenticate(context.Background(), access); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("repo error: want ErrorInternal, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byIDOut: &models.User{ID: "u1", Email: "old@b.c", Username: "old"}},
	}
	s := newAuthService(t, rm)

	u, err := s.UpdateProfile(context.Background(), "u1", strPtr("newname"), strPtr(" NEW@B.C "))
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if u.Username != "newname" || u.Email != "new@b.c" {
		t.Fatalf("unexpected result: %+v", u)
	}

	// nil means leave unchanged
	rm.u.byIDOut = &models.User{ID: "u1", Email: "old@b.c", Username: "old"}
	u, err = s.UpdateProfile(context.Background(), "u1", nil, nil)
	if err != nil || u.Username != "old" || u.Email != "old@b.c" {
		t.Fatalf("no-op update: (%+v, %v)", u, err)
	}

	rmDup := &fakeRepoManager{
		u: &fakeUsersRepo{byIDOut: &models.User{ID: "u1"}, updateErr: common.ErrorDuplicateEmail},
	}
	if _, err := newAuthService(t, rmDup).UpdateProfile(context.Background(), "u1", nil, strPtr("taken@b.c")); !errors.Is(err, common.ErrorDuplicateEmail) {
		t.Fatalf("want ErrorDuplicateEmail, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	rm := &fakeRepoManager{se: &fakeSessionsRepo{revokeOwnedFound: true}}
	if err := newAuthService(t, rm).RevokeSession(context.Background(), "u1", "s1"); err != nil {
		t.Fatalf("RevokeSession error: %v", err)
	}

	rmNF := &fakeRepoManager{se: &fakeSessionsRepo{revokeOwnedFound: false}}
	if err := newAuthService(t, rmNF).RevokeSession(context.Background(), "u1", "sX"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	rmErr := &fakeRepoManager{se: &fakeSessionsRepo{revokeOwnedErr: errBoom{}}}
	err := newAuthService(t, rmErr).RevokeSession(context.Background(), "u1", "s1")
	if err == nil || !regexp.MustCompile(`error revoking session: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
