package httpapi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/store/memory"
)

func newTestAuthManager() (*AuthManager, *memory.Store) {
	repo := memory.NewSeeded()
	return NewAuthManager("test-secret-key-test-secret-key!", time.Hour, repo), repo
}

func TestLoginIssuesParsableToken(t *testing.T) {
	auth, _ := newTestAuthManager()

	resp, err := auth.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if resp.User.Username != "admin" || resp.User.Role != "admin" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.ID != resp.User.ID || actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newTestAuthManager()
	ctx := context.Background()

	if _, err := auth.Login(ctx, domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected login to fail with wrong password")
	}
	if _, err := auth.Login(ctx, domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected login to fail for unknown user")
	}
}

func TestRegisterStoresPasswordHash(t *testing.T) {
	auth, repo := newTestAuthManager()
	ctx := context.Background()

	resp, err := auth.Register(ctx, domain.RegisterRequest{
		Username: "Barista1",
		Password: "brew-secret",
		Role:     "cashier",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if resp.User.Username != "barista1" {
		t.Fatalf("expected lowercased username, got %q", resp.User.Username)
	}

	account, err := repo.GetUserByUsername(ctx, "barista1")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if account.Password == "brew-secret" {
		t.Fatalf("expected password to be hashed")
	}
	if !strings.HasPrefix(account.Password, "$2") {
		t.Fatalf("expected bcrypt hash, got %s", account.Password)
	}

	if _, err := auth.Login(ctx, domain.LoginRequest{Username: "barista1", Password: "brew-secret"}); err != nil {
		t.Fatalf("login with registered user failed: %v", err)
	}
}

func TestRegisterCollectsValidationMessages(t *testing.T) {
	auth, _ := newTestAuthManager()

	_, err := auth.Register(context.Background(), domain.RegisterRequest{
		Username: "ab",
		Password: "123",
		Role:     "janitor",
	})
	var invalid *validationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(invalid.messages) != 3 {
		t.Fatalf("expected 3 messages, got %v", invalid.messages)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	auth, _ := newTestAuthManager()

	_, err := auth.Register(context.Background(), domain.RegisterRequest{
		Username: "admin",
		Password: "whatever123",
	})
	var invalid *validationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected validation error for duplicate username, got %v", err)
	}
	if !strings.Contains(invalid.Error(), "already exists") {
		t.Fatalf("unexpected message: %v", invalid.Error())
	}
}

func TestRegisterDefaultsToCashierRole(t *testing.T) {
	auth, _ := newTestAuthManager()

	resp, err := auth.Register(context.Background(), domain.RegisterRequest{
		Username: "newhire",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if resp.User.Role != domain.RoleCashier {
		t.Fatalf("expected default cashier role, got %q", resp.User.Role)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth, _ := newTestAuthManager()

	resp, err := auth.Login(context.Background(), domain.LoginRequest{
		Username: "cashier",
		Password: "cashier123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := auth.ParseToken(resp.AccessToken + "x"); err == nil {
		t.Fatalf("expected tampered token to fail")
	}

	other := NewAuthManager("another-secret-another-secret!!!", time.Hour, nil)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with a different secret to fail")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key-test-secret-key!", time.Nanosecond, repo)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{
		Username: "manager",
		Password: "manager123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestCurrentUserFailsForDeletedAccount(t *testing.T) {
	auth, _ := newTestAuthManager()

	_, err := auth.CurrentUser(context.Background(), domain.Actor{ID: "usr-gone"})
	if err == nil {
		t.Fatalf("expected lookup for deleted account to fail")
	}
}
