package app_test

import (
	"context"
	"testing"

	"exam-practice-service/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.auth.Register(ctx, "bob", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("empty role must default to user, got %q", user.Role)
	}
	if user.PasswordHash == "hunter2hunter2" {
		t.Fatalf("password must be stored hashed")
	}

	loggedIn, token, err := f.auth.Login(ctx, "bob", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, loggedIn.ID)
	}

	identity, err := f.auth.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if identity.UserID != user.ID || identity.Role != domain.RoleUser {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.auth.Register(ctx, "alice", "anotherpass", domain.RoleUser); err != domain.ErrUsernameTaken {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.auth.Login(ctx, "alice", "wrongpassword"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected credentials error for a wrong password, got %v", err)
	}
	// Unknown usernames look exactly like wrong passwords.
	if _, _, err := f.auth.Login(ctx, "nobody", "whatever"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected credentials error for an unknown user, got %v", err)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, token, err := f.auth.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := f.auth.Logout(ctx, token); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, token); err != domain.ErrTokenNotFound {
		t.Fatalf("expected token to be gone, got %v", err)
	}
	// Logging out twice is fine.
	if err := f.auth.Logout(ctx, token); err != nil {
		t.Fatalf("repeat logout must be a no-op, got %v", err)
	}
}

func TestUsersListIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.auth.Users(ctx, f.user); err != domain.ErrForbidden {
		t.Fatalf("expected forbidden for a regular user, got %v", err)
	}
	users, err := f.auth.Users(ctx, f.admin)
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}
