package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sumire/jobtracker/internal/domain"
)

// UserStore defines the user data access interface consumed by SessionGuard.
type UserStore interface {
	FindByCredentials(ctx context.Context, username, password string) ([]domain.User, error)
	FindByUsername(ctx context.Context, username string) ([]domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

// MarkerStore is the persisted slot mapping a session marker to a username.
type MarkerStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, username string) error
	Clear(ctx context.Context, key string) error
}

// SessionConfig holds session signing configuration.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// Session is an authenticated caller. Identity is the username alone.
type Session struct {
	Username  string
	Token     string
	ExpiresAt time.Time
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionGuard decides who may see the protected views.
type SessionGuard struct {
	users    UserStore
	markers  MarkerStore
	validate *Validator
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionGuard creates a new SessionGuard.
func NewSessionGuard(users UserStore, markers MarkerStore, cfg SessionConfig) *SessionGuard {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionGuard{
		users:    users,
		markers:  markers,
		validate: NewValidator(),
		secret:   []byte(cfg.Secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login starts a session when the store holds at least one user with exactly
// this username and password.
func (g *SessionGuard) Login(ctx context.Context, username, password string) (*Session, error) {
	creds, err := g.credentials(username, password)
	if err != nil {
		return nil, err
	}

	users, err := g.users.FindByCredentials(ctx, creds.Username, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if len(users) == 0 {
		return nil, domain.ErrInvalidCredentials
	}

	return g.start(ctx, creds.Username)
}

// Register creates the user unless the username is taken, then logs them in.
func (g *SessionGuard) Register(ctx context.Context, username, password string) (*Session, error) {
	creds, err := g.credentials(username, password)
	if err != nil {
		return nil, err
	}

	existing, err := g.users.FindByUsername(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if len(existing) > 0 {
		return nil, domain.ErrAlreadyExists
	}

	if _, err := g.users.Create(ctx, domain.User{Username: creds.Username, Password: password}); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	return g.start(ctx, creds.Username)
}

// Resume restores the session a token refers to.
func (g *SessionGuard) Resume(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	key, expiresAt, err := g.parse(token, true)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	username, err := g.markers.Load(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("resume session: %w", err)
	}

	return &Session{Username: username, Token: token, ExpiresAt: expiresAt}, nil
}

// IsAuthenticated reports whether token refers to a live session.
func (g *SessionGuard) IsAuthenticated(ctx context.Context, token string) bool {
	_, err := g.Resume(ctx, token)
	return err == nil
}

// Logout forgets the session marker. Unknown or expired tokens are ignored.
func (g *SessionGuard) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	key, _, err := g.parse(token, false)
	if err != nil {
		return nil
	}
	if err := g.markers.Clear(ctx, key); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (g *SessionGuard) credentials(username, password string) (credentials, error) {
	creds := credentials{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	}
	if err := g.validate.Validate(creds); err != nil {
		return credentials{}, err
	}
	return creds, nil
}

func (g *SessionGuard) start(ctx context.Context, username string) (*Session, error) {
	key := uuid.NewString()
	if err := g.markers.Save(ctx, key, username); err != nil {
		return nil, fmt.Errorf("save session marker: %w", err)
	}

	now := g.now()
	expiresAt := now.Add(g.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  key,
		"type": "session",
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &Session{Username: username, Token: signed, ExpiresAt: expiresAt}, nil
}

// parse returns the marker key a token carries. validate=false accepts
// expired tokens so logout can still clear their marker.
func (g *SessionGuard) parse(tokenString string, validate bool) (string, time.Time, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	}, opts...)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", time.Time{}, domain.ErrUnauthorized
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != "session" {
		return "", time.Time{}, domain.ErrUnauthorized
	}

	key, _ := claims["sub"].(string)
	if key == "" {
		return "", time.Time{}, domain.ErrUnauthorized
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	return key, expiresAt, nil
}
