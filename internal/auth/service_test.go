package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/internal/users"
	pkgAuth "github.com/easelhouse/paintsip-backend/pkg/auth"
	"github.com/easelhouse/paintsip-backend/pkg/auth/session"
	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db/dbtest"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
)

var (
	testJWT = config.JWTConfig{
		Secret:            "secret",
		Issuer:            "paintsip",
		ExpirationMinutes: 30,
	}
	testPassword = config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
)

type sessionEntry struct {
	userID uuid.UUID
	token  string
}

type fakeSessions struct {
	entries map[string]sessionEntry
	counter int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{entries: map[string]sessionEntry{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	f.counter++
	token := "refresh-" + accessID
	f.entries[accessID] = sessionEntry{userID: userID, token: token}
	return token, nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	entry, ok := f.entries[oldAccessID]
	if !ok || entry.userID != userID || entry.token != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.entries, oldAccessID)
	next := session.NewAccessID()
	token := "refresh-" + next
	f.entries[next] = sessionEntry{userID: userID, token: token}
	return next, token, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.entries, accessID)
	return nil
}

func newTestService(t *testing.T) (Service, *fakeSessions) {
	t.Helper()
	conn := dbtest.Open(t)
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
		Clock:          time.Now,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func TestRegisterThenLogin(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Name: "Rosa Host", Email: "Rosa@Example.com", Password: "canvas1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User == nil || reg.User.Email != "rosa@example.com" {
		t.Fatalf("expected normalized email, got %+v", reg.User)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, reg.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != reg.User.ID {
		t.Fatalf("token user mismatch")
	}
	if _, ok := sessions.entries[claims.ID]; !ok {
		t.Fatalf("expected session stored under jti")
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "rosa@example.com", Password: "canvas1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.RefreshToken == "" || login.User.LastLoginAt == nil {
		t.Fatalf("expected refresh token and last login, got %+v", login)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Name: "Rosa", Email: "rosa@example.com", Password: "canvas1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterRequest{Name: "Rosa Two", Email: "ROSA@example.com", Password: "canvas2"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Name: "Rosa", Email: "rosa@example.com", Password: "canvas1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, req := range []LoginRequest{
		{Email: "rosa@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "canvas1"},
		{Email: "  ", Password: "canvas1"},
	} {
		_, err := svc.Login(ctx, req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", req.Email, err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("expected uniform message, got %q", typed.Message())
		}
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()
	login, err := svc.Register(ctx, RegisterRequest{Name: "Rosa", Email: "rosa@example.com", Password: "canvas1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if _, ok := sessions.entries[claims.ID]; !ok {
		t.Fatalf("expected rotated session")
	}

	_, err = svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected reused refresh token to fail, got %v", err)
	}
}

func TestRefreshRejectsForeignToken(t *testing.T) {
	svc, _ := newTestService(t)
	other := config.JWTConfig{Secret: "other", Issuer: "paintsip", ExpirationMinutes: 30}
	token, err := pkgAuth.MintAccessToken(other, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = svc.Refresh(context.Background(), token, "whatever")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()
	login, err := svc.Register(ctx, RegisterRequest{Name: "Rosa", Email: "rosa@example.com", Password: "canvas1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx, login.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.entries) != 0 {
		t.Fatalf("expected session revoked, have %d", len(sessions.entries))
	}
}
