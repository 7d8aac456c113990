package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

type fakeUserRepo struct {
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if u, ok := f.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-created"
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (f *fakeUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	f.revoked = append(f.revoked, id)
	return nil
}

func (f *fakeUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func authFixture(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["admin-1"] = &models.User{
		ID:           "admin-1",
		Email:        "admin@ripetiamo.it",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "unit-test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "backoffice-api",
	})
	return svc, repo
}

func TestAuthServiceLoginIssuesTokenPair(t *testing.T) {
	svc, repo := authFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ripetiamo.it",
		Password: "secret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "admin-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	require.NotNil(t, repo.users["admin-1"].LastLogin)
}

func TestAuthServiceLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ripetiamo.it",
		Password: "wrong",
	})
	require.Error(t, err)
}

func TestAuthServiceLoginRejectsInactiveAccount(t *testing.T) {
	svc, repo := authFixture(t)
	repo.users["admin-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ripetiamo.it",
		Password: "secret-pass",
	})
	require.Error(t, err)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ripetiamo.it",
		Password: "secret-pass",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The consumed token is revoked and cannot be replayed.
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
}

func TestAuthServiceRegisterHashesPassword(t *testing.T) {
	svc, repo := authFixture(t)

	user, err := svc.Register(context.Background(), RegisterUserRequest{
		Email:    "tutor@ripetiamo.it",
		Password: "another-pass",
		FullName: "Tutor",
		Role:     models.RoleTutor,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "another-pass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("another-pass")))

	_, err = svc.Register(context.Background(), RegisterUserRequest{
		Email:    "tutor@ripetiamo.it",
		Password: "another-pass",
		FullName: "Tutor",
		Role:     models.RoleTutor,
	})
	require.Error(t, err)
	assert.Len(t, repo.users, 2)
}
