package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crewnet/enrol-service/app/dto"
	apperrors "github.com/crewnet/enrol-service/app/errors"
	"github.com/crewnet/enrol-service/app/hasher"
	"github.com/crewnet/enrol-service/app/metrics"
	"github.com/crewnet/enrol-service/app/models"
	"github.com/crewnet/enrol-service/app/notify"
	"github.com/crewnet/enrol-service/app/store"
)

// AdminService covers the administrator-invoked mutations on users and
// enrollments, plus the crew self-service password change.
type AdminService struct {
	base
}

func NewAdminService(runtime *Runtime, st store.Storage, dispatcher *notify.Dispatcher, log zerolog.Logger) *AdminService {
	return &AdminService{
		base: base{
			runtime:    runtime,
			store:      st,
			dispatcher: dispatcher,
			log:        log.With().Str("component", "admin").Logger(),
		},
	}
}

// CreateUser creates a user account directly, with no roles assigned.
func (s *AdminService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}

	snap := s.runtime.Snapshot()

	if req.Password != req.PasswordVerify {
		return dto.Result{}, apperrors.NewValidation("Passwords do not match")
	}
	if len(req.Password) < snap.Policy.MinPasswordLength {
		return dto.Result{}, apperrors.NewValidation("Password too short")
	}
	if len(req.Name) < snap.Policy.MinUsernameLength {
		return dto.Result{}, apperrors.NewValidation("Username too short")
	}

	_, err := s.store.Users.GetByName(ctx, req.Name)
	if err == nil {
		return dto.Result{}, apperrors.NewDuplicate("User already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return dto.Result{}, apperrors.NewTransport("could not check username", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Mail:         req.Mail,
		PasswordHash: hasher.Hash(req.Password, snap.Salt),
		Roles:        []string{},
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		s.log.Error().Err(err).Str("name", req.Name).Msg("tried to create invalid user")
		return dto.Result{}, apperrors.NewTransport("could not create user", err)
	}
	metrics.RecordUserCreated()

	s.log.Info().Str("name", req.Name).Str("user_id", user.ID).Msg("user created by admin")
	return dto.Ok("Done"), nil
}

// ChangeEnrollmentStatus applies an admin decision to an enrollment.
// Unrecognized status values and unknown ids are logged and silently
// ignored: the nil, nil return tells the caller not to respond at all.
func (s *AdminService) ChangeEnrollmentStatus(ctx context.Context, req dto.ChangeEnrollmentRequest) (*dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	status := models.Status(req.Status)
	resend := req.Status == "Resend"
	if !resend && !models.ValidStatus(status) {
		s.log.Warn().Str("status", req.Status).Msg("erroneous status for enrollment requested")
		return nil, nil
	}

	s.log.Info().Str("enrollment_id", req.UUID).Str("status", req.Status).Msg("changing status of an enrollment")

	enrollment, err := s.store.Enrollments.GetByID(ctx, req.UUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Str("enrollment_id", req.UUID).Msg("enrollment not found")
			return nil, nil
		}
		return nil, apperrors.NewTransport("could not load enrollment", err)
	}

	snap := s.runtime.Snapshot()

	if resend {
		enrollment.CreatedAt = time.Now()
		if err := s.store.Enrollments.Update(ctx, enrollment); err != nil {
			return nil, apperrors.NewTransport("could not update enrollment", err)
		}
		if err := s.sendInvitation(ctx, snap, enrollment); err != nil {
			s.log.Error().Err(err).Str("enrollment_id", enrollment.ID).Msg("invitation resend failed")
		}
		reply := dto.Ok("Resent")
		return &reply, nil
	}

	enrollment.Status = status
	if err := s.store.Enrollments.Update(ctx, enrollment); err != nil {
		return nil, apperrors.NewTransport("could not update enrollment", err)
	}

	if status == models.StatusAccepted && enrollment.Method == models.MethodEnrolled {
		// The account keeps the Enrolled role group and the password the
		// enrollee staged: no invited-group roles, no forced password
		// change. The enrollee already chose their credential.
		metrics.RecordEnrollmentAccepted()
		if _, appErr := s.createUser(ctx, snap, enrollment.Name, enrollment.Password, enrollment.Email, enrollment.Method); appErr != nil {
			return nil, appErr
		}
		if err := s.sendAcceptance(ctx, snap, enrollment, ""); err != nil {
			s.log.Error().Err(err).Str("enrollment_id", enrollment.ID).Msg("acceptance notification failed")
		}
	}

	s.log.Debug().Str("enrollment_id", enrollment.ID).Msg("enrollment changed")
	reply := dto.Ok(enrollment.SerializableFields())
	return &reply, nil
}

// ChangePassword is the crew self-service password change. A wrong old
// password is an explicit failure payload, not an error: the request was
// well-formed, the credential just didn't match.
func (s *AdminService) ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}

	snap := s.runtime.Snapshot()

	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dto.Result{}, apperrors.NewNotFound("Error")
		}
		return dto.Result{}, apperrors.NewTransport("could not load user", err)
	}

	if hasher.Hash(req.Old, snap.Salt) != user.PasswordHash {
		s.log.Warn().Str("user_id", userID).Msg("user tried to change password without supplying old one")
		return dto.Fail("Invalid password"), nil
	}

	user.PasswordHash = hasher.Hash(req.New, snap.Salt)
	user.NeedsPasswordChange = false
	if err := s.store.Users.Update(ctx, user); err != nil {
		return dto.Result{}, apperrors.NewTransport("could not update user", err)
	}

	s.log.Info().Str("user_id", userID).Msg("successfully changed password for user")
	return dto.Ok("Done"), nil
}

// AddRole assigns a role to a user. Assigning a role twice fails.
func (s *AdminService) AddRole(ctx context.Context, req dto.RoleRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}
	if req.Role == "" || req.UUID == "" {
		return dto.Result{}, apperrors.NewValidation("Bad Arguments")
	}

	user, appErr := s.loadUser(ctx, req.UUID)
	if appErr != nil {
		return dto.Result{}, appErr
	}

	if user.HasRole(req.Role) {
		return dto.Result{}, apperrors.NewDuplicate("Role already assigned")
	}

	user.Roles = append(user.Roles, req.Role)
	if err := s.store.Users.Update(ctx, user); err != nil {
		return dto.Result{}, apperrors.NewTransport("could not update user", err)
	}

	s.log.Info().Str("name", user.Name).Str("role", req.Role).Msg("user role added")
	return dto.Ok("Done"), nil
}

// DelRole removes a role from a user. Removing an absent role is a no-op.
func (s *AdminService) DelRole(ctx context.Context, req dto.RoleRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}
	if req.Role == "" || req.UUID == "" {
		return dto.Result{}, apperrors.NewValidation("Bad Arguments")
	}

	user, appErr := s.loadUser(ctx, req.UUID)
	if appErr != nil {
		return dto.Result{}, appErr
	}

	user.RemoveRole(req.Role)
	if err := s.store.Users.Update(ctx, user); err != nil {
		return dto.Result{}, apperrors.NewTransport("could not update user", err)
	}

	s.log.Info().Str("name", user.Name).Str("role", req.Role).Msg("user role deleted")
	return dto.Ok("Done"), nil
}

// ToggleActive sets a user's activation flag.
func (s *AdminService) ToggleActive(ctx context.Context, req dto.ToggleRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}
	if req.UUID == "" || req.Status == nil {
		return dto.Result{}, apperrors.NewValidation("Bad Arguments")
	}

	user, appErr := s.loadUser(ctx, req.UUID)
	if appErr != nil {
		return dto.Result{}, appErr
	}

	user.Active = *req.Status
	if err := s.store.Users.Update(ctx, user); err != nil {
		return dto.Result{}, apperrors.NewTransport("could not update user", err)
	}

	s.log.Info().Str("name", user.Name).Bool("active", user.Active).Msg("toggled user activation")
	return dto.Ok("Done"), nil
}

// DeleteUser removes a user and, when present, its profile. The two
// deletes are not transactional; a leftover profile is tolerated.
func (s *AdminService) DeleteUser(ctx context.Context, req dto.DeleteUserRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}

	user, appErr := s.loadUser(ctx, req.UUID)
	if appErr != nil {
		return dto.Result{}, appErr
	}

	if err := s.store.Users.Delete(ctx, user.ID); err != nil {
		return dto.Result{}, apperrors.NewTransport("could not delete user", err)
	}

	profile, err := s.store.Profiles.GetByOwner(ctx, user.ID)
	if err == nil {
		if err := s.store.Profiles.Delete(ctx, profile.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("could not delete profile")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("could not look up profile")
	}

	s.log.Info().Str("name", user.Name).Msg("user deleted")
	return dto.Ok(req.UUID), nil
}

func (s *AdminService) loadUser(ctx context.Context, id string) (*models.User, *apperrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("Error")
		}
		return nil, apperrors.NewTransport("could not load user", err)
	}
	return user, nil
}
