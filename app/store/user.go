package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/crewnet/enrol-service/app/models"
)

type UsersStore struct {
	db *sql.DB
}

// Roles are kept as a jsonb column; the set is small and only ever read
// or replaced whole.
func encodeRoles(roles []string) ([]byte, error) {
	if roles == nil {
		roles = []string{}
	}
	return json.Marshal(roles)
}

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var user models.User
	var roles []byte
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Mail,
		&user.PasswordHash,
		&roles,
		&user.Active,
		&user.NeedsPasswordChange,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(roles, &user.Roles); err != nil {
		return nil, err
	}
	return &user, nil
}

const userColumns = `id, name, mail, password_hash, roles, active, needs_password_change, created_at`

func (s *UsersStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *UsersStore) GetByName(ctx context.Context, name string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE name = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, name))
}

func (s *UsersStore) GetByEmail(ctx context.Context, mail string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE mail = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, mail))
}

func (s *UsersStore) CountByName(ctx context.Context, name string) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE name = $1`
	var count int
	err := s.db.QueryRowContext(ctx, query, name).Scan(&count)
	return count, err
}

func (s *UsersStore) CountByEmail(ctx context.Context, mail string) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE mail = $1`
	var count int
	err := s.db.QueryRowContext(ctx, query, mail).Scan(&count)
	return count, err
}

func (s *UsersStore) Create(ctx context.Context, user *models.User) error {
	roles, err := encodeRoles(user.Roles)
	if err != nil {
		return err
	}
	query := `INSERT INTO users (id, name, mail, password_hash, roles, active, needs_password_change, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Mail,
		user.PasswordHash,
		roles,
		user.Active,
		user.NeedsPasswordChange,
		user.CreatedAt,
	)
	return err
}

func (s *UsersStore) Update(ctx context.Context, user *models.User) error {
	roles, err := encodeRoles(user.Roles)
	if err != nil {
		return err
	}
	query := `UPDATE users SET name = $2, mail = $3, password_hash = $4, roles = $5,
	active = $6, needs_password_change = $7 WHERE id = $1`
	_, err = s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Mail,
		user.PasswordHash,
		roles,
		user.Active,
		user.NeedsPasswordChange,
	)
	return err
}

func (s *UsersStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
