package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/store"
)

type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByID(ctx context.Context, id string) (*domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// validationError collects field-level messages so the handler can return
// them all at once instead of failing on the first.
type validationError struct {
	messages []string
}

func (e *validationError) Error() string {
	return strings.Join(e.messages, "; ")
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
	}
}

func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	role := strings.ToLower(strings.TrimSpace(req.Role))

	messages := make([]string, 0, 3)
	if len(username) < 3 {
		messages = append(messages, "username must be at least 3 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		messages = append(messages, "username must not contain spaces")
	}
	if len(req.Password) < 6 {
		messages = append(messages, "password must be at least 6 characters")
	}
	if role == "" {
		role = domain.RoleCashier
	}
	if !domain.ValidRole(role) {
		messages = append(messages, "role must be admin, manager or cashier")
	}
	if len(messages) > 0 {
		return domain.AuthResponse{}, &validationError{messages: messages}
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.AuthResponse{}, fmt.Errorf("failed to hash password")
	}

	account := domain.UserAccount{
		Username:  username,
		Password:  passwordHash,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.userStore.CreateUser(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.AuthResponse{}, &validationError{messages: []string{"username already exists"}}
		}
		return domain.AuthResponse{}, err
	}

	created, err := a.userStore.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	return a.issue(*created)
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	account, err := a.userStore.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthResponse{}, errors.New("invalid credentials")
		}
		return domain.AuthResponse{}, err
	}

	if !verifyPassword(account.Password, req.Password) {
		return domain.AuthResponse{}, errors.New("invalid credentials")
	}

	return a.issue(*account)
}

// CurrentUser resolves the token subject back to a full account, so a stale
// token for a deleted user stops working immediately.
func (a *AuthManager) CurrentUser(ctx context.Context, actor domain.Actor) (domain.User, error) {
	account, err := a.userStore.GetUserByID(ctx, actor.ID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:        account.ID,
		Username:  account.Username,
		Role:      account.Role,
		CreatedAt: account.CreatedAt,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{ID: sub, Username: claims.Username, Role: claims.Role}, nil
}

func (a *AuthManager) issue(account domain.UserAccount) (domain.AuthResponse, error) {
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(account, expiresAt)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	return domain.AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		User: domain.User{
			ID:        account.ID,
			Username:  account.Username,
			Role:      account.Role,
			CreatedAt: account.CreatedAt,
		},
	}, nil
}

func (a *AuthManager) sign(account domain.UserAccount, expiresAt time.Time) (string, error) {
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "cafepos",
		},
		Username: account.Username,
		Role:     account.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
