package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakho/ecommerce-webservices/internal/model"
	"github.com/lakho/ecommerce-webservices/internal/queue"
	"github.com/lakho/ecommerce-webservices/internal/repository"
)

type fakeDirectory struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
	roles map[uuid.UUID][]model.Role
	finds int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[uuid.UUID]model.User{},
		roles: map[uuid.UUID][]model.Role{},
	}
}

func (d *fakeDirectory) add(email string, roleNames ...string) model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := model.User{ID: uuid.New(), Email: email, Username: email, Enabled: true}
	d.users[u.ID] = u
	for i, name := range roleNames {
		d.roles[u.ID] = append(d.roles[u.ID], model.Role{ID: uint8(i + 1), Name: name})
	}
	return u
}

func (d *fakeDirectory) FindByEmailOrUsername(_ context.Context, identifier string) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds++
	for _, u := range d.users {
		if u.Email == identifier || u.Username == identifier {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (d *fakeDirectory) FindByID(_ context.Context, id uuid.UUID) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (d *fakeDirectory) GetRoles(_ context.Context, userID uuid.UUID) ([]model.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roles[userID], nil
}

func (d *fakeDirectory) UpdateProfile(_ context.Context, id uuid.UUID, firstName, lastName *string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FirstName = firstName
	u.LastName = lastName
	d.users[id] = u
	return nil
}

func (d *fakeDirectory) UpdateRoles(_ context.Context, id uuid.UUID, roleNames []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var roles []model.Role
	for i, name := range roleNames {
		roles = append(roles, model.Role{ID: uint8(i + 1), Name: name})
	}
	d.roles[id] = roles
	return nil
}

func (d *fakeDirectory) Delete(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(d.users, id)
	delete(d.roles, id)
	return nil
}

func (d *fakeDirectory) List(_ context.Context) ([]model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	return out, nil
}

type fakeDataReader struct {
	mu      sync.Mutex
	byEmail map[string]model.CachedUserData
}

func newFakeDataReader() *fakeDataReader {
	return &fakeDataReader{byEmail: map[string]model.CachedUserData{}}
}

func (r *fakeDataReader) GetByEmail(_ context.Context, email string) (model.CachedUserData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.byEmail[email]
	return data, ok
}

func (r *fakeDataReader) Cache(_ context.Context, data model.CachedUserData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEmail[data.Email] = data
	return nil
}

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(context.Context, queue.Event) error { return p.err }

func TestProfileCacheAside(t *testing.T) {
	dir := newFakeDirectory()
	reader := newFakeDataReader()
	events := &recordingPublisher{}
	svc := NewUserService(dir, reader, events)
	dir.add("a@x.com", model.RoleConsumer)
	ctx := context.Background()

	data, err := svc.Profile(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", data.Email)
	assert.Equal(t, []string{model.RoleConsumer}, data.Roles)
	assert.Equal(t, 1, dir.finds)

	// Second read is served from the repopulated cache.
	_, err = svc.Profile(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, dir.finds)
}

func TestProfileUnknownUser(t *testing.T) {
	svc := NewUserService(newFakeDirectory(), newFakeDataReader(), &recordingPublisher{})
	_, err := svc.Profile(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfilePublishesAfterWrite(t *testing.T) {
	dir := newFakeDirectory()
	events := &recordingPublisher{}
	svc := NewUserService(dir, newFakeDataReader(), events)
	u := dir.add("a@x.com", model.RoleConsumer)

	first := "Alice"
	require.NoError(t, svc.UpdateProfile(context.Background(), "a@x.com", &first, nil))

	got, err := dir.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FirstName)
	assert.Equal(t, "Alice", *got.FirstName)

	require.Len(t, events.events, 1)
	assert.Equal(t, queue.EventUserUpdated, events.events[0].Kind)
	assert.Equal(t, u.ID.String(), events.events[0].UserID)
}

func TestUpdateProfilePublishFailureIsSwallowed(t *testing.T) {
	dir := newFakeDirectory()
	svc := NewUserService(dir, newFakeDataReader(), failingPublisher{err: errors.New("broker down")})
	dir.add("a@x.com")

	first := "Alice"
	assert.NoError(t, svc.UpdateProfile(context.Background(), "a@x.com", &first, nil),
		"a lost invalidation event leaves a stale cache entry, not a failed write")
}

func TestUpdateUserRolesAdminAssignable(t *testing.T) {
	dir := newFakeDirectory()
	events := &recordingPublisher{}
	svc := NewUserService(dir, newFakeDataReader(), events)
	u := dir.add("a@x.com", model.RoleConsumer)
	ctx := context.Background()

	require.NoError(t, svc.UpdateUserRoles(ctx, u.ID, []string{model.RoleAdmin, model.RoleConsumer}))

	roles, err := svc.UserRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN,CONSUMER", model.JoinRoleNames(roles))

	require.Len(t, events.events, 1)
	assert.Equal(t, queue.EventUserRoleUpdated, events.events[0].Kind)
}

func TestUpdateUserRolesValidation(t *testing.T) {
	dir := newFakeDirectory()
	svc := NewUserService(dir, newFakeDataReader(), &recordingPublisher{})
	u := dir.add("a@x.com")
	ctx := context.Background()

	assert.ErrorIs(t, svc.UpdateUserRoles(ctx, u.ID, []string{"SUPERUSER"}), ErrUnknownRole)
	assert.ErrorIs(t, svc.UpdateUserRoles(ctx, uuid.New(), []string{model.RoleConsumer}), ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	dir := newFakeDirectory()
	events := &recordingPublisher{}
	svc := NewUserService(dir, newFakeDataReader(), events)
	u := dir.add("a@x.com")
	ctx := context.Background()

	require.NoError(t, svc.DeleteUser(ctx, u.ID))
	_, err := dir.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.Len(t, events.events, 1)
	assert.Equal(t, queue.EventUserUpdated, events.events[0].Kind)

	assert.ErrorIs(t, svc.DeleteUser(ctx, u.ID), ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	dir := newFakeDirectory()
	svc := NewUserService(dir, newFakeDataReader(), &recordingPublisher{})
	dir.add("a@x.com")
	dir.add("b@x.com")

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
