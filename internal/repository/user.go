package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sumire/jobtracker/internal/domain"
)

// UserRepository accesses the /users collection of the record store.
type UserRepository struct {
	client *Client
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// FindByCredentials returns every user whose username and password both match.
// The comparison happens in the store as a plain equality query.
func (r *UserRepository) FindByCredentials(ctx context.Context, username, password string) ([]domain.User, error) {
	var users []domain.User
	q := url.Values{"username": {username}, "password": {password}}
	if err := r.client.do(ctx, http.MethodGet, "/users", q, nil, &users); err != nil {
		return nil, fmt.Errorf("find user by credentials: %w", err)
	}
	return users, nil
}

// FindByUsername returns every user registered under username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) ([]domain.User, error) {
	var users []domain.User
	q := url.Values{"username": {username}}
	if err := r.client.do(ctx, http.MethodGet, "/users", q, nil, &users); err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return users, nil
}

// Create registers a new user.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{user.Username, user.Password}

	var created domain.User
	if err := r.client.do(ctx, http.MethodPost, "/users", nil, body, &created); err != nil {
		return domain.User{}, fmt.Errorf("create user %q: %w", user.Username, err)
	}
	if created.Username == "" {
		created.Username = user.Username
	}
	return created, nil
}
