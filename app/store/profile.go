package store

import (
	"context"
	"database/sql"

	"github.com/crewnet/enrol-service/app/models"
)

type ProfilesStore struct {
	db *sql.DB
}

func (s *ProfilesStore) GetByOwner(ctx context.Context, owner string) (*models.Profile, error) {
	query := `SELECT id, owner FROM profiles WHERE owner = $1`
	var p models.Profile
	if err := s.db.QueryRowContext(ctx, query, owner).Scan(&p.ID, &p.Owner); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfilesStore) Create(ctx context.Context, profile *models.Profile) error {
	query := `INSERT INTO profiles (id, owner) VALUES ($1, $2)`
	_, err := s.db.ExecContext(ctx, query, profile.ID, profile.Owner)
	return err
}

func (s *ProfilesStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM profiles WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
