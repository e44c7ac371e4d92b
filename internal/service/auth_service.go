package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/servopoint/servopoint/internal/config"
	"github.com/servopoint/servopoint/internal/model"
	"github.com/servopoint/servopoint/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingCredentials reports an absent email or password.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrInvalidCredentials reports a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService is the user directory: account creation, credential
// verification and stateless bearer-token issuance.
type AuthService struct {
	store  storage.Store
	secret []byte
	ttl    time.Duration
}

// Claims represents the JWT payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewAuthService builds AuthService from config.
func NewAuthService(store storage.Store, cfg *config.Config) *AuthService {
	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret == "" {
		secret = "servopoint-default-secret"
	}
	ttl := cfg.Auth.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Register creates an account with a bcrypt-hashed password and an empty
// pairing row, so /get-devices works before the first pairing.
func (a *AuthService) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := a.store.CreateUser(ctx, &model.User{Email: email, PasswordHash: string(hash)}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if err := a.store.EnsurePairing(ctx, email); err != nil {
		return fmt.Errorf("create pairing row: %w", err)
	}
	return nil
}

// Login verifies the credential and returns a signed bearer token. The
// token encodes the identity and verifies without server-side session state.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	user, err := a.store.GetUser(ctx, email)
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate parses a token and returns its claims if valid.
func (a *AuthService) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
