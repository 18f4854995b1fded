package store

import (
	"context"
	"database/sql"

	"github.com/crewnet/enrol-service/app/models"
)

type SystemConfigStore struct {
	db *sql.DB
}

// GetActive returns the single active system configuration row.
func (s *SystemConfigStore) GetActive(ctx context.Context) (*models.SystemConfig, error) {
	query := `SELECT id, name, hostname, salt, active FROM systemconfig WHERE active = true LIMIT 1`
	var cfg models.SystemConfig
	err := s.db.QueryRowContext(ctx, query).Scan(
		&cfg.ID,
		&cfg.Name,
		&cfg.Hostname,
		&cfg.Salt,
		&cfg.Active,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
