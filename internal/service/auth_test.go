package service

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/jobtracker/internal/domain"
	"github.com/sumire/jobtracker/internal/fakestore"
	"github.com/sumire/jobtracker/internal/repository"
)

const testSecret = "test-secret"

func newStoreClient(t *testing.T, store *fakestore.Store) *repository.Client {
	t.Helper()
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)
	c, err := repository.NewClient(context.Background(), repository.ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func newMarkers(t *testing.T) *repository.MarkerRepository {
	t.Helper()
	db, err := repository.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	markers := repository.NewMarkerRepository(db)
	require.NoError(t, markers.Migrate(context.Background()))
	return markers
}

func newGuard(t *testing.T, store *fakestore.Store) *SessionGuard {
	t.Helper()
	users := repository.NewUserRepository(newStoreClient(t, store))
	return NewSessionGuard(users, newMarkers(t), SessionConfig{Secret: testSecret, TTL: time.Hour})
}

func TestLoginRequiresBothFields(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{name: "empty username", username: "", password: "x", field: "username"},
		{name: "blank username", username: "   ", password: "x", field: "username"},
		{name: "empty password", username: "alice", password: "", field: "password"},
		{name: "blank password", username: "alice", password: " \t", field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := fakestore.New()
			guard := newGuard(t, store)

			_, err := guard.Login(context.Background(), tt.username, tt.password)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, store.Requests())
		})
	}
}

func TestLogin(t *testing.T) {
	store := fakestore.New()
	store.SeedUser("alice", "secret")
	guard := newGuard(t, store)
	ctx := context.Background()

	_, err := guard.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = guard.Login(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	sess, err := guard.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, guard.IsAuthenticated(ctx, sess.Token))
}

func TestLoginTrimsUsername(t *testing.T) {
	store := fakestore.New()
	store.SeedUser("alice", "secret")
	guard := newGuard(t, store)

	sess, err := guard.Login(context.Background(), "  alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
}

func TestLoginSurfacesStoreFailure(t *testing.T) {
	store := fakestore.New()
	store.FailWith(500)
	guard := newGuard(t, store)

	_, err := guard.Login(context.Background(), "alice", "secret")
	require.Error(t, err)
	var serr *domain.StatusError
	assert.ErrorAs(t, err, &serr)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegister(t *testing.T) {
	store := fakestore.New()
	store.SeedUser("alice", "secret")
	guard := newGuard(t, store)
	ctx := context.Background()

	_, err := guard.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Len(t, store.Users(), 1)

	sess, err := guard.Register(ctx, "bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bob", sess.Username)
	assert.True(t, guard.IsAuthenticated(ctx, sess.Token))

	users := store.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[1]["username"])
	assert.Equal(t, "pw", users[1]["password"])
}

func TestRegisterValidatesBeforeLookup(t *testing.T) {
	store := fakestore.New()
	guard := newGuard(t, store)

	_, err := guard.Register(context.Background(), "bob", "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.Requests())
}

func TestResume(t *testing.T) {
	store := fakestore.New()
	store.SeedUser("alice", "secret")
	guard := newGuard(t, store)
	ctx := context.Background()

	sess, err := guard.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	resumed, err := guard.Resume(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", resumed.Username)
	assert.WithinDuration(t, sess.ExpiresAt, resumed.ExpiresAt, time.Second)

	_, err = guard.Resume(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = guard.Resume(ctx, "not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other := NewSessionGuard(nil, newMarkers(t), SessionConfig{Secret: "other-secret"})
	_, err = other.Resume(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResumeRejectsExpiredToken(t *testing.T) {
	store := fakestore.New()
	store.SeedUser("alice", "secret")
	guard := newGuard(t, store)
	ctx := context.Background()

	sess, err := guard.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	guard.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.False(t, guard.IsAuthenticated(ctx, sess.Token))

	// logout still clears the marker of an expired token
	require.NoError(t, guard.Logout(ctx, sess.Token))
	guard.now = time.Now
	assert.False(t, guard.IsAuthenticated(ctx, sess.Token))
}

func TestLogout(t *testing.T) {
	store := fakestore.New()
	store.SeedUser("alice", "secret")
	guard := newGuard(t, store)
	ctx := context.Background()

	first, err := guard.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	second, err := guard.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, guard.Logout(ctx, first.Token))
	assert.False(t, guard.IsAuthenticated(ctx, first.Token))
	assert.True(t, guard.IsAuthenticated(ctx, second.Token))

	assert.NoError(t, guard.Logout(ctx, ""))
	assert.NoError(t, guard.Logout(ctx, "garbage"))
	assert.NoError(t, guard.Logout(ctx, first.Token))
}
