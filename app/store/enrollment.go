package store

import (
	"context"
	"database/sql"

	"github.com/crewnet/enrol-service/app/models"
)

type EnrollmentsStore struct {
	db *sql.DB
}

const enrollmentColumns = `id, name, email, method, status, password, created_at`

func scanEnrollment(row interface{ Scan(dest ...any) error }) (*models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Email,
		&e.Method,
		&e.Status,
		&e.Password,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EnrollmentsStore) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	return scanEnrollment(s.db.QueryRowContext(ctx, query, id))
}

func (s *EnrollmentsStore) CountByName(ctx context.Context, name string) (int, error) {
	query := `SELECT COUNT(*) FROM enrollments WHERE name = $1`
	var count int
	err := s.db.QueryRowContext(ctx, query, name).Scan(&count)
	return count, err
}

func (s *EnrollmentsStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	query := `INSERT INTO enrollments (id, name, email, method, status, password, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.Name,
		enrollment.Email,
		enrollment.Method,
		enrollment.Status,
		enrollment.Password,
		enrollment.CreatedAt,
	)
	return err
}

func (s *EnrollmentsStore) Update(ctx context.Context, enrollment *models.Enrollment) error {
	query := `UPDATE enrollments SET status = $2, password = $3, created_at = $4 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.Status,
		enrollment.Password,
		enrollment.CreatedAt,
	)
	return err
}
