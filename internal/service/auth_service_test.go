package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classtrackhq/classtrack-api/internal/models"
)

type stubUserRepo struct {
	users         map[string]*models.User
	byEmail       map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revoked       []string
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:         map[string]*models.User{},
		byEmail:       map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
}

func (r *stubUserRepo) addUser(user *models.User) {
	r.users[user.ID] = user
	r.byEmail[user.Email] = user
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (r *stubUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.refreshTokens[token.Token] = token
	return nil
}

func (r *stubUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := r.refreshTokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	r.revoked = append(r.revoked, id)
	for _, token := range r.refreshTokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (r *stubUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func testAuthService(repo *stubUserRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "classtrack",
	})
}

func seedUser(repo *stubUserRepo, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	school := "school-1"
	user := &models.User{
		ID:           "user-1",
		Email:        "instructor@example.edu",
		PasswordHash: string(hash),
		FullName:     "Grace Hopper",
		Role:         models.RoleInstructor,
		SchoolID:     &school,
		Active:       true,
	}
	repo.addUser(user)
	return user
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "s3cret")
	svc := testAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "instructor@example.edu", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleInstructor, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleInstructor, claims.Role)
	assert.Equal(t, "school-1", claims.SchoolID)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "s3cret")
	svc := testAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "instructor@example.edu", Password: "wrong"})
	assert.Error(t, err)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(repo, "s3cret")
	user.Active = false
	svc := testAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "instructor@example.edu", Password: "s3cret"})
	assert.Error(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "s3cret")
	svc := testAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "instructor@example.edu", Password: "s3cret"})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	// The used token is revoked; a second exchange must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.Error(t, err)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "s3cret")
	svc := testAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "instructor@example.edu", Password: "s3cret"})
	require.NoError(t, err)

	assert.Error(t, svc.Logout(context.Background(), login.RefreshToken, "someone-else"))
	assert.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "user-1"))
}
