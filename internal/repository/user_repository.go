package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lakho/ecommerce-webservices/internal/model"
)

// UserRepo is the single source of truth for user identity, password
// hashes, status flags and role associations. Any cache population or
// invalidation is the caller's responsibility.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,username,password_hash,first_name,last_name," +
	"account_expired,account_locked,credentials_expired,enabled,created_at,updated_at"

// Create inserts a user together with its role associations in one
// transaction. A duplicate email or username surfaces as ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User, roleNames []string) (model.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Username == "" {
		u.Username = u.Email
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, username, password_hash, enabled) VALUES (?,?,?,?,?)",
		u.ID.String(), u.Email, u.Username, u.PasswordHash, u.Enabled)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrConflict
		}
		return model.User{}, err
	}
	for _, name := range roleNames {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role_id) SELECT ?, id FROM roles WHERE name=?",
			u.ID.String(), name)
		if err != nil {
			return model.User{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.User{}, fmt.Errorf("unknown role %q", name)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// FindByEmailOrUsername fetches a user matching the identifier against
// either unique column. The identifier is normalized the same way emails
// are stored.
func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, identifier string) (model.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? OR username=? LIMIT 1",
		identifier, identifier))
}

// FindByID fetches a user by primary key.
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id.String()))
}

// ExistsByEmail reports whether a user with the given email exists.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE email=? LIMIT 1", email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetRoles resolves a user's role set through the user_roles join table.
func (r *UserRepo) GetRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT r.id, r.name FROM roles r JOIN user_roles ur ON ur.role_id=r.id WHERE ur.user_id=? ORDER BY r.id",
		userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		hash, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile sets the optional profile fields. Nil pointers clear the
// corresponding column.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		firstName, lastName, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRoles replaces a user's role associations in one transaction.
func (r *UserRepo) UpdateRoles(ctx context.Context, id uuid.UUID, roleNames []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", id.String()); err != nil {
		return err
	}
	for _, name := range roleNames {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role_id) SELECT ?, id FROM roles WHERE name=?",
			id.String(), name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("unknown role %q", name)
		}
	}
	return tx.Commit()
}

// Delete removes a user and cascades its role associations.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", id.String()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// List returns all users ordered by creation time. Intended for the
// admin surface; call sites should not expose password hashes.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u            model.User
		id           string
		passwordHash sql.NullString
		firstName    sql.NullString
		lastName     sql.NullString
	)
	err := s.Scan(&id, &u.Email, &u.Username, &passwordHash, &firstName, &lastName,
		&u.AccountExpired, &u.AccountLocked, &u.CredentialsExpired, &u.Enabled,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.ID, err = uuid.Parse(id)
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = passwordHash.String
	if firstName.Valid {
		u.FirstName = &firstName.String
	}
	if lastName.Valid {
		u.LastName = &lastName.String
	}
	return u, nil
}

// isDuplicate detects MySQL error 1062 (duplicate entry for a unique key).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
