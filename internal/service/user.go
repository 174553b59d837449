package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/lakho/ecommerce-webservices/internal/model"
	"github.com/lakho/ecommerce-webservices/internal/queue"
	"github.com/lakho/ecommerce-webservices/internal/repository"
)

// UserDirectory is the slice of the user repository the profile and admin
// surfaces need.
type UserDirectory interface {
	FindByEmailOrUsername(ctx context.Context, identifier string) (model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName *string) error
	UpdateRoles(ctx context.Context, id uuid.UUID, roleNames []string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]model.User, error)
}

// UserDataReader is the cache-aside read/populate side of the user-data
// cache.
type UserDataReader interface {
	GetByEmail(ctx context.Context, email string) (model.CachedUserData, bool)
	Cache(ctx context.Context, data model.CachedUserData) error
}

// UserService backs the consumer profile endpoints and the admin user
// management surface. Every write publishes its invalidation event only
// after the repository call has returned, i.e. after the transaction
// committed; the queue consumer then drops the affected cache entries off
// the request thread.
type UserService struct {
	users     UserDirectory
	userCache UserDataReader
	events    queue.Publisher
}

func NewUserService(users UserDirectory, userCache UserDataReader, events queue.Publisher) *UserService {
	return &UserService{users: users, userCache: userCache, events: events}
}

// Profile returns the caller's profile projection, cache-aside: the Redis
// entry is tried first, the database on a miss, and the cache repopulated.
func (s *UserService) Profile(ctx context.Context, email string) (model.CachedUserData, error) {
	if data, ok := s.userCache.GetByEmail(ctx, email); ok {
		return data, nil
	}
	user, err := s.users.FindByEmailOrUsername(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CachedUserData{}, ErrUserNotFound
	}
	if err != nil {
		return model.CachedUserData{}, fmt.Errorf("lookup user: %w", err)
	}
	roles, err := s.users.GetRoles(ctx, user.ID)
	if err != nil {
		return model.CachedUserData{}, fmt.Errorf("load roles: %w", err)
	}
	data := model.NewCachedUserData(user, roles)
	if err := s.userCache.Cache(ctx, data); err != nil {
		log.Printf("user: repopulate cache failed user_id=%s: %v", user.ID, err)
	}
	return data, nil
}

// UpdateProfile changes the caller's optional name fields and schedules
// cache invalidation.
func (s *UserService) UpdateProfile(ctx context.Context, email string, firstName, lastName *string) error {
	user, err := s.users.FindByEmailOrUsername(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := s.users.UpdateProfile(ctx, user.ID, firstName, lastName); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	s.publishAfterCommit(ctx, queue.NewEvent(queue.EventUserUpdated, user.ID.String()))
	return nil
}

// ListUsers returns every user for the admin surface.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// UserRoles resolves a single user's roles for the admin surface.
func (s *UserService) UserRoles(ctx context.Context, id uuid.UUID) ([]model.Role, error) {
	return s.users.GetRoles(ctx, id)
}

// UpdateUserRoles replaces a user's role set. Unlike registration this is
// an administrative operation, so ADMIN is assignable here.
func (s *UserService) UpdateUserRoles(ctx context.Context, id uuid.UUID, roleNames []string) error {
	for _, name := range roleNames {
		switch name {
		case model.RoleAdmin, model.RoleConsumer, model.RoleStoreOwner:
		default:
			return fmt.Errorf("%w: %s", ErrUnknownRole, name)
		}
	}
	if _, err := s.users.FindByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := s.users.UpdateRoles(ctx, id, roleNames); err != nil {
		return fmt.Errorf("update roles: %w", err)
	}
	s.publishAfterCommit(ctx, queue.NewEvent(queue.EventUserRoleUpdated, id.String()))
	return nil
}

// DeleteUser removes a user and schedules cache invalidation.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.publishAfterCommit(ctx, queue.NewEvent(queue.EventUserUpdated, id.String()))
	return nil
}

// publishAfterCommit hands an invalidation event to the broker. The write
// has already committed by the time this runs; a publish failure is logged
// and swallowed, leaving the stale entry to die at its TTL.
func (s *UserService) publishAfterCommit(ctx context.Context, ev queue.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("user: publish %s failed user_id=%s: %v", ev.Kind, ev.UserID, err)
	}
}
