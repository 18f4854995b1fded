package store

import (
	"context"
	"database/sql"

	"github.com/crewnet/enrol-service/app/models"
)

// Storage bundles the per-collection stores the services depend on.
// Implementations surface sql.ErrNoRows for absent records; there are no
// cross-record transactions, so multi-step sequences (user then profile)
// are explicit two-step protocols at the call sites.
type Storage struct {
	Users interface {
		GetByID(ctx context.Context, id string) (*models.User, error)
		GetByName(ctx context.Context, name string) (*models.User, error)
		GetByEmail(ctx context.Context, mail string) (*models.User, error)
		CountByName(ctx context.Context, name string) (int, error)
		CountByEmail(ctx context.Context, mail string) (int, error)
		Create(ctx context.Context, user *models.User) error
		Update(ctx context.Context, user *models.User) error
		Delete(ctx context.Context, id string) error
	}
	Enrollments interface {
		GetByID(ctx context.Context, id string) (*models.Enrollment, error)
		CountByName(ctx context.Context, name string) (int, error)
		Create(ctx context.Context, enrollment *models.Enrollment) error
		Update(ctx context.Context, enrollment *models.Enrollment) error
	}
	Profiles interface {
		GetByOwner(ctx context.Context, owner string) (*models.Profile, error)
		Create(ctx context.Context, profile *models.Profile) error
		Delete(ctx context.Context, id string) error
	}
	SystemConfig interface {
		GetActive(ctx context.Context) (*models.SystemConfig, error)
	}
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Users:        &UsersStore{db: db},
		Enrollments:  &EnrollmentsStore{db: db},
		Profiles:     &ProfilesStore{db: db},
		SystemConfig: &SystemConfigStore{db: db},
	}
}
