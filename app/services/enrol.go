package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crewnet/enrol-service/app/captcha"
	"github.com/crewnet/enrol-service/app/dto"
	apperrors "github.com/crewnet/enrol-service/app/errors"
	"github.com/crewnet/enrol-service/app/metrics"
	"github.com/crewnet/enrol-service/app/models"
	"github.com/crewnet/enrol-service/app/notify"
	"github.com/crewnet/enrol-service/app/store"
)

// Self-enrollment minimums. Deliberately looser than the admin-facing
// ones: the enrollment form has always accepted short usernames and the
// acceptance step is the real gate.
const (
	minSelfPasswordLength = 5
	minSelfUsernameLength = 1
)

// EnrolService drives the enrollment state machine: invitations,
// self-enrollment, acceptance, registration status and password reset
// requests.
type EnrolService struct {
	base
	challenges *captcha.Issuer
	validate   *validator.Validate
}

func NewEnrolService(runtime *Runtime, st store.Storage, dispatcher *notify.Dispatcher, challenges *captcha.Issuer, log zerolog.Logger) *EnrolService {
	return &EnrolService{
		base: base{
			runtime:    runtime,
			store:      st,
			dispatcher: dispatcher,
			log:        log.With().Str("component", "enrol").Logger(),
		},
		challenges: challenges,
		validate:   validator.New(),
	}
}

// Status reports whether self-registration is currently open. Pure read
// of policy, no side effects.
func (s *EnrolService) Status() (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}
	return dto.Ok(s.runtime.Snapshot().Policy.AllowRegistration), nil
}

// Captcha issues a fresh challenge for the requester. The image itself
// arrives later through the gateway; the caller only gets an
// acknowledgment that a challenge was requested.
func (s *EnrolService) Captcha(requesterID string) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}

	if _, err := s.challenges.Issue(requesterID); err != nil {
		return dto.Result{}, apperrors.NewTransport("could not generate challenge", err)
	}
	metrics.RecordCaptchaIssued()
	return dto.Ok("Captcha requested"), nil
}

// Invite creates an Open enrollment on behalf of an admin and sends the
// invitation notification.
func (s *EnrolService) Invite(ctx context.Context, req dto.InviteRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}

	method := models.Method(req.Method)
	if method != models.MethodInvited && method != models.MethodEnrolled {
		return dto.Result{}, apperrors.NewValidation("Unknown enrollment method")
	}

	s.log.Info().Str("name", req.Name).Str("email", req.Email).Msg("inviting new user to enrol")

	if _, appErr := s.createEnrollment(ctx, req.Name, req.Email, method, ""); appErr != nil {
		return dto.Result{}, appErr
	}
	return dto.Ok(req.Email), nil
}

// Enrol handles a self-enrollment attempt. The validation order is fixed
// and the first failure wins, each with its own user-facing message.
func (s *EnrolService) Enrol(ctx context.Context, requesterID string, req dto.EnrolRequest) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}

	snap := s.runtime.Snapshot()

	if !snap.Policy.AllowRegistration {
		s.log.Info().Msg("someone tried to register although enrolment is closed")
		return dto.Result{}, apperrors.NewValidation("Registration is not open")
	}

	if !s.challenges.Verify(requesterID, req.Captcha) {
		s.log.Info().Str("requester_id", requesterID).Msg("captcha failed")
		metrics.RecordCaptchaFailed()
		// Reissue so the client can try again with a fresh challenge;
		// the old text is no longer accepted.
		if _, err := s.challenges.Issue(requesterID); err != nil {
			s.log.Error().Err(err).Msg("could not reissue challenge")
		} else {
			metrics.RecordCaptchaIssued()
		}
		return dto.Result{}, apperrors.NewChallengeFailed("You did not solve the captcha correctly.")
	}

	if req.Mail == "" {
		return dto.Result{}, apperrors.NewValidation("You have to supply all required fields.")
	}
	if err := s.validate.Var(req.Mail, "email"); err != nil {
		return dto.Result{}, apperrors.NewValidation("The supplied email address seems invalid")
	}

	mailCount, err := s.store.Users.CountByEmail(ctx, req.Mail)
	if err != nil {
		return dto.Result{}, apperrors.NewTransport("could not check email address", err)
	}
	if mailCount > 0 {
		return dto.Result{}, apperrors.NewDuplicate("Your mail address cannot be used.")
	}

	if len(req.Password) < minSelfPasswordLength {
		return dto.Result{}, apperrors.NewValidation("Your password is not long enough.")
	}

	if len(req.Username) < minSelfUsernameLength {
		return dto.Result{}, apperrors.NewValidation("Your username is not long enough.")
	}

	userCount, err := s.store.Users.CountByName(ctx, req.Username)
	if err != nil {
		return dto.Result{}, apperrors.NewTransport("could not check username", err)
	}
	enrollmentCount, err := s.store.Enrollments.CountByName(ctx, req.Username)
	if err != nil {
		return dto.Result{}, apperrors.NewTransport("could not check username", err)
	}
	if userCount > 0 || enrollmentCount > 0 {
		return dto.Result{}, apperrors.NewDuplicate("The username you supplied is not available.")
	}

	s.log.Info().Str("username", req.Username).Msg("provided data is good to enrol")

	if snap.Policy.NoVerify {
		if _, appErr := s.createUser(ctx, snap, req.Username, req.Password, req.Mail, models.MethodEnrolled); appErr != nil {
			return dto.Result{}, appErr
		}
		return dto.Ok(req.Mail), nil
	}

	if _, appErr := s.createEnrollment(ctx, req.Username, req.Mail, models.MethodEnrolled, req.Password); appErr != nil {
		return dto.Result{}, appErr
	}
	return dto.Ok(req.Mail), nil
}

// Accept resolves a mailed invitation link. Safe to click repeatedly:
// resolved enrollments reaffirm their outcome without mutation.
func (s *EnrolService) Accept(ctx context.Context, enrollmentID string) (dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return dto.Result{}, err
	}

	snap := s.runtime.Snapshot()

	enrollment, err := s.store.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Str("enrollment_id", enrollmentID).Msg("no enrollment available")
			// Generic on purpose: unknown ids must not be distinguishable.
			return dto.Result{}, apperrors.NewNotFound("Error")
		}
		return dto.Result{}, apperrors.NewTransport("could not load enrollment", err)
	}

	switch enrollment.Status {
	case models.StatusOpen:
		return s.resolveOpen(ctx, snap, enrollment)

	case models.StatusAccepted:
		// Reaffirm acceptance when clicking the link multiple times.
		return dto.Ok("You can now log in to the system and start to use it."), nil

	case models.StatusPending:
		return dto.Ok("Someone has to confirm your enrollment first. Thank you, for your patience."), nil

	default:
		s.log.Warn().Str("enrollment_id", enrollmentID).Msg("enrollment has been closed already")
		return dto.Result{}, apperrors.NewNotFound("Error")
	}
}

// resolveOpen applies the auto-acceptance policy to an Open enrollment.
func (s *EnrolService) resolveOpen(ctx context.Context, snap Snapshot, enrollment *models.Enrollment) (dto.Result, *apperrors.AppError) {
	var message string

	switch {
	case enrollment.Method == models.MethodInvited && snap.Policy.AutoAcceptInvited:
		password, err := generatePassword()
		if err != nil {
			return dto.Result{}, apperrors.NewTransport("could not generate password", err)
		}

		if _, appErr := s.createUser(ctx, snap, enrollment.Name, password, enrollment.Email, enrollment.Method); appErr != nil {
			return dto.Result{}, appErr
		}

		enrollment.Status = models.StatusAccepted
		if err := s.store.Enrollments.Update(ctx, enrollment); err != nil {
			return dto.Result{}, apperrors.NewTransport("could not update enrollment", err)
		}
		metrics.RecordEnrollmentAccepted()

		// The account exists; a failed notification does not undo it.
		if err := s.sendAcceptance(ctx, snap, enrollment, password); err != nil {
			s.log.Error().Err(err).Str("enrollment_id", enrollment.ID).Msg("acceptance notification failed")
		}

		message = "You should have received an email with your new password " +
			"and can now log in to the system and start to use it. " +
			"Please change your password immediately after logging in"

	case enrollment.Method == models.MethodEnrolled && snap.Policy.AutoAcceptEnrolled:
		if _, appErr := s.createUser(ctx, snap, enrollment.Name, enrollment.Password, enrollment.Email, enrollment.Method); appErr != nil {
			return dto.Result{}, appErr
		}

		enrollment.Status = models.StatusAccepted
		if err := s.store.Enrollments.Update(ctx, enrollment); err != nil {
			return dto.Result{}, apperrors.NewTransport("could not update enrollment", err)
		}
		metrics.RecordEnrollmentAccepted()

		// No acceptance mail for self-enrolled users by policy.
		message = "Your account is now activated."

	default:
		enrollment.Status = models.StatusPending
		if err := s.store.Enrollments.Update(ctx, enrollment); err != nil {
			return dto.Result{}, apperrors.NewTransport("could not update enrollment", err)
		}
		message = "Someone has to confirm your enrollment first. Thank you, for your patience."
	}

	return dto.Ok(message), nil
}

// RequestReset looks up a user by mail for a password reset request.
// Lookup only for now: no reset token is issued, and a known address
// gets no reply at all. A nil result with a nil error means success
// with nothing to send.
func (s *EnrolService) RequestReset(ctx context.Context, email string) (*dto.Result, *apperrors.AppError) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	if email == "" {
		return nil, apperrors.NewNotFound("Mail address unknown")
	}

	_, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("Mail address unknown")
		}
		return nil, apperrors.NewTransport("could not look up mail address", err)
	}

	s.log.Info().Str("mail", email).Msg("password reset requested")
	return nil, nil
}

// createEnrollment stores a new Open enrollment and sends the invitation
// notification. The staged password is only non-empty for self-enrolled
// requests and stays on the record until acceptance.
func (s *EnrolService) createEnrollment(ctx context.Context, name, email string, method models.Method, password string) (*models.Enrollment, *apperrors.AppError) {
	enrollment := &models.Enrollment{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Method:    method,
		Status:    models.StatusOpen,
		Password:  password,
		CreatedAt: time.Now(),
	}

	if err := s.store.Enrollments.Create(ctx, enrollment); err != nil {
		return nil, apperrors.NewTransport("could not store enrollment", err)
	}
	metrics.RecordEnrollmentCreated(string(method))
	s.log.Debug().Str("enrollment_id", enrollment.ID).Msg("enrollment stored")

	snap := s.runtime.Snapshot()
	if err := s.sendInvitation(ctx, snap, enrollment); err != nil {
		// The enrollment stands; an admin can resend the invitation.
		s.log.Error().Err(err).Str("enrollment_id", enrollment.ID).Msg("invitation notification failed")
	}

	return enrollment, nil
}
