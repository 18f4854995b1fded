package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/crewnet/enrol-service/app/captcha"
	"github.com/crewnet/enrol-service/app/dto"
	"github.com/crewnet/enrol-service/app/models"
	"github.com/crewnet/enrol-service/app/notify"
	"github.com/crewnet/enrol-service/app/store"
)

// memDB is an in-memory stand-in for the Postgres stores, good enough to
// run multi-step workflow scenarios.
type memDB struct {
	mu          sync.Mutex
	users       map[string]*models.User
	enrollments map[string]*models.Enrollment
	profiles    map[string]*models.Profile
	sysconfig   *models.SystemConfig
}

func newMemDB() *memDB {
	return &memDB{
		users:       make(map[string]*models.User),
		enrollments: make(map[string]*models.Enrollment),
		profiles:    make(map[string]*models.Profile),
		sysconfig: &models.SystemConfig{
			ID:       "sys-1",
			Name:     "harbor",
			Hostname: "harbor.example",
			Salt:     "pepper",
			Active:   true,
		},
	}
}

func (db *memDB) storage() store.Storage {
	return store.Storage{
		Users:        &memUsers{db},
		Enrollments:  &memEnrollments{db},
		Profiles:     &memProfiles{db},
		SystemConfig: &memSystemConfig{db},
	}
}

func (db *memDB) userCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users)
}

func (db *memDB) enrollmentCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.enrollments)
}

func (db *memDB) profileCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.profiles)
}

type memUsers struct{ db *memDB }

func copyUser(u *models.User) *models.User {
	out := *u
	out.Roles = append([]string(nil), u.Roles...)
	return &out
}

func (s *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u, ok := s.db.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, sql.ErrNoRows
}

func (s *memUsers) GetByName(ctx context.Context, name string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Name == name {
			return copyUser(u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memUsers) GetByEmail(ctx context.Context, mail string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Mail == mail {
			return copyUser(u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memUsers) CountByName(ctx context.Context, name string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	count := 0
	for _, u := range s.db.users {
		if u.Name == name {
			count++
		}
	}
	return count, nil
}

func (s *memUsers) CountByEmail(ctx context.Context, mail string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	count := 0
	for _, u := range s.db.users {
		if u.Mail == mail {
			count++
		}
	}
	return count, nil
}

func (s *memUsers) Create(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.users[user.ID] = copyUser(user)
	return nil
}

func (s *memUsers) Update(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	s.db.users[user.ID] = copyUser(user)
	return nil
}

func (s *memUsers) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.users, id)
	return nil
}

type memEnrollments struct{ db *memDB }

func copyEnrollment(e *models.Enrollment) *models.Enrollment {
	out := *e
	return &out
}

func (s *memEnrollments) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if e, ok := s.db.enrollments[id]; ok {
		return copyEnrollment(e), nil
	}
	return nil, sql.ErrNoRows
}

func (s *memEnrollments) CountByName(ctx context.Context, name string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	count := 0
	for _, e := range s.db.enrollments {
		if e.Name == name {
			count++
		}
	}
	return count, nil
}

func (s *memEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.enrollments[enrollment.ID] = copyEnrollment(enrollment)
	return nil
}

func (s *memEnrollments) Update(ctx context.Context, enrollment *models.Enrollment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.enrollments[enrollment.ID]; !ok {
		return sql.ErrNoRows
	}
	s.db.enrollments[enrollment.ID] = copyEnrollment(enrollment)
	return nil
}

type memProfiles struct{ db *memDB }

func (s *memProfiles) GetByOwner(ctx context.Context, owner string) (*models.Profile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.profiles {
		if p.Owner == owner {
			out := *p
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memProfiles) Create(ctx context.Context, profile *models.Profile) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := *profile
	s.db.profiles[profile.ID] = &out
	return nil
}

func (s *memProfiles) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.profiles, id)
	return nil
}

type memSystemConfig struct{ db *memDB }

func (s *memSystemConfig) GetActive(ctx context.Context) (*models.SystemConfig, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.sysconfig == nil || !s.db.sysconfig.Active {
		return nil, sql.ErrNoRows
	}
	out := *s.db.sysconfig
	return &out, nil
}

// stubRenderer keeps captcha tests independent of image output.
type stubRenderer struct{}

func (stubRenderer) Render(text string) ([]byte, error) { return []byte("png"), nil }

// nopPusher drops pushed envelopes; deliveries are not under test here.
type nopPusher struct{}

func (nopPusher) Send(requesterID string, resp dto.Push) error { return nil }

type testEnv struct {
	db     *memDB
	rt     *Runtime
	enrol  *EnrolService
	admin  *AdminService
	mailer *notify.RecordingMailer
	issuer *captcha.Issuer
}

// newTestEnv wires services against the in-memory stores. Policy
// overrides are plain env vars, applied before the runtime loads.
func newTestEnv(t *testing.T, env map[string]string) *testEnv {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}

	db := newMemDB()
	st := db.storage()

	rt := NewRuntime(st)
	require.Nil(t, rt.Reconfigure(context.Background()))

	mailer := notify.NewRecordingMailer(zerolog.Nop())
	dispatcher := notify.NewDispatcher(mailer, zerolog.Nop())

	issuer := captcha.NewIssuer(stubRenderer{}, nopPusher{}, time.Hour, zerolog.Nop())
	t.Cleanup(issuer.Stop)

	return &testEnv{
		db:     db,
		rt:     rt,
		enrol:  NewEnrolService(rt, st, dispatcher, issuer, zerolog.Nop()),
		admin:  NewAdminService(rt, st, dispatcher, zerolog.Nop()),
		mailer: mailer,
		issuer: issuer,
	}
}
