package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"exam-practice-service/internal/domain"
)

// Identity is the authenticated caller attached to a bearer token.
type Identity struct {
	UserID int64       `json:"userId"`
	Role   domain.Role `json:"role"`
}

// IsAdmin reports whether the identity may perform catalog mutations.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// UserStore abstracts how user accounts are persisted (Postgres, in-memory).
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UserByID(ctx context.Context, id int64) (domain.User, error)
	UserByUsername(ctx context.Context, username string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// TokenStore holds opaque bearer tokens with a TTL (Redis, in-memory).
type TokenStore interface {
	Save(ctx context.Context, token string, identity Identity, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (Identity, error)
	Delete(ctx context.Context, token string) error
}

// AuthService covers registration, login, and bearer-token resolution.
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(users UserStore, tokens TokenStore, tokenTTL time.Duration) *AuthService {
	return &AuthService{users: users, tokens: tokens, tokenTTL: tokenTTL, now: time.Now}
}

// Register creates a new account with a bcrypt-hashed password. An empty role
// defaults to the regular user role.
func (s *AuthService) Register(ctx context.Context, username, password string, role domain.Role) (domain.User, error) {
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.User{}, domain.ErrForbidden
	}

	if _, err := s.users.UserByUsername(ctx, username); err == nil {
		return domain.User{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues an opaque bearer token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	user, err := s.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.tokens.Save(ctx, token, Identity{UserID: user.ID, Role: user.Role}, s.tokenTTL); err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Logout invalidates a bearer token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.tokens.Delete(ctx, token)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil
	}
	return err
}

// Authenticate resolves a bearer token to the identity it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Identity, error) {
	return s.tokens.Lookup(ctx, token)
}

// Users lists all accounts. Admin only.
func (s *AuthService) Users(ctx context.Context, actor Identity) ([]domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.users.ListUsers(ctx)
}
