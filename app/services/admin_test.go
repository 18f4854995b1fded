package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewnet/enrol-service/app/dto"
	apperrors "github.com/crewnet/enrol-service/app/errors"
	"github.com/crewnet/enrol-service/app/hasher"
	"github.com/crewnet/enrol-service/app/models"
)

func seedUser(t *testing.T, env *testEnv, user *models.User) {
	t.Helper()
	require.NoError(t, env.db.storage().Users.Create(context.Background(), user))
}

func TestCreateUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t, nil)

		result, appErr := env.admin.CreateUser(context.Background(), dto.CreateUserRequest{
			Name: "alice", Mail: "alice@example.com",
			Password: "longenough", PasswordVerify: "longenough",
		})
		require.Nil(t, appErr)
		assert.Equal(t, "Done", result.Value)

		user := env.db.onlyUser(t)
		assert.Equal(t, "alice", user.Name)
		assert.True(t, user.Active)
		assert.Empty(t, user.Roles)
		assert.Equal(t, hasher.Hash("longenough", []byte("pepper")), user.PasswordHash)
	})

	t.Run("password mismatch", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, appErr := env.admin.CreateUser(context.Background(), dto.CreateUserRequest{
			Name: "alice", Mail: "alice@example.com",
			Password: "longenough", PasswordVerify: "different",
		})
		require.NotNil(t, appErr)
		assert.Equal(t, "Passwords do not match", appErr.Message)
		assert.Equal(t, 0, env.db.userCount())
	})

	t.Run("password too short", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, appErr := env.admin.CreateUser(context.Background(), dto.CreateUserRequest{
			Name: "alice", Mail: "alice@example.com",
			Password: "short", PasswordVerify: "short",
		})
		require.NotNil(t, appErr)
		assert.Equal(t, "Password too short", appErr.Message)
	})

	t.Run("username too short", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, appErr := env.admin.CreateUser(context.Background(), dto.CreateUserRequest{
			Name: "al", Mail: "al@example.com",
			Password: "longenough", PasswordVerify: "longenough",
		})
		require.NotNil(t, appErr)
		assert.Equal(t, "Username too short", appErr.Message)
	})

	t.Run("duplicate name", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{ID: "u-1", Name: "alice", Mail: "old@example.com"})

		_, appErr := env.admin.CreateUser(context.Background(), dto.CreateUserRequest{
			Name: "alice", Mail: "new@example.com",
			Password: "longenough", PasswordVerify: "longenough",
		})
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrCodeDuplicate, appErr.Code)
		assert.Equal(t, "User already exists", appErr.Message)
	})
}

func TestChangeEnrollmentStatus(t *testing.T) {
	openEnrollment := func(t *testing.T, env *testEnv, method models.Method) *models.Enrollment {
		t.Helper()
		enrollment := &models.Enrollment{
			ID: "e-1", Name: "alice", Email: "alice@example.com",
			Method: method, Status: models.StatusOpen,
			Password: "secret99", CreatedAt: time.Now().Add(-time.Hour),
		}
		require.NoError(t, env.db.storage().Enrollments.Create(context.Background(), enrollment))
		return enrollment
	}

	t.Run("unknown status is ignored", func(t *testing.T) {
		env := newTestEnv(t, nil)
		openEnrollment(t, env, models.MethodEnrolled)

		result, appErr := env.admin.ChangeEnrollmentStatus(context.Background(), dto.ChangeEnrollmentRequest{
			UUID: "e-1", Status: "Bogus",
		})
		assert.Nil(t, result)
		assert.Nil(t, appErr)
		assert.Equal(t, models.StatusOpen, env.db.onlyEnrollment(t).Status)
	})

	t.Run("unknown enrollment is ignored", func(t *testing.T) {
		env := newTestEnv(t, nil)

		result, appErr := env.admin.ChangeEnrollmentStatus(context.Background(), dto.ChangeEnrollmentRequest{
			UUID: "no-such-id", Status: "Denied",
		})
		assert.Nil(t, result)
		assert.Nil(t, appErr)
	})

	t.Run("resend refreshes and mails again", func(t *testing.T) {
		env := newTestEnv(t, nil)
		before := openEnrollment(t, env, models.MethodInvited).CreatedAt

		result, appErr := env.admin.ChangeEnrollmentStatus(context.Background(), dto.ChangeEnrollmentRequest{
			UUID: "e-1", Status: "Resend",
		})
		require.Nil(t, appErr)
		require.NotNil(t, result)
		assert.Equal(t, "Resent", result.Value)

		enrollment := env.db.onlyEnrollment(t)
		assert.Equal(t, models.StatusOpen, enrollment.Status)
		assert.True(t, enrollment.CreatedAt.After(before))

		sent := env.mailer.Sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].Body, "https://harbor.example/#!/invitation/e-1")
	})

	t.Run("denied", func(t *testing.T) {
		env := newTestEnv(t, nil)
		openEnrollment(t, env, models.MethodEnrolled)

		result, appErr := env.admin.ChangeEnrollmentStatus(context.Background(), dto.ChangeEnrollmentRequest{
			UUID: "e-1", Status: "Denied",
		})
		require.Nil(t, appErr)
		require.NotNil(t, result)
		assert.True(t, result.OK)

		fields, ok := result.Value.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Denied", fields["status"])
		assert.Equal(t, models.StatusDenied, env.db.onlyEnrollment(t).Status)
		assert.Equal(t, 0, env.db.userCount())
	})

	t.Run("accepting a self-enrollment provisions the account", func(t *testing.T) {
		env := newTestEnv(t, nil)
		openEnrollment(t, env, models.MethodEnrolled)

		result, appErr := env.admin.ChangeEnrollmentStatus(context.Background(), dto.ChangeEnrollmentRequest{
			UUID: "e-1", Status: "Accepted",
		})
		require.Nil(t, appErr)
		require.NotNil(t, result)

		user := env.db.onlyUser(t)
		assert.Equal(t, "alice", user.Name)
		assert.Equal(t, hasher.Hash("secret99", []byte("pepper")), user.PasswordHash)
		assert.False(t, user.NeedsPasswordChange)

		// Acceptance notice without a password postscript: the user
		// chose their own password at enrollment time.
		sent := env.mailer.Sent()
		require.Len(t, sent, 1)
		assert.NotContains(t, sent[0].Body, "PS: Your new password is")
	})
}

func TestChangePassword(t *testing.T) {
	salt := []byte("pepper")

	t.Run("wrong old password", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{
			ID: "u-1", Name: "alice",
			PasswordHash: hasher.Hash("oldpass", salt),
		})

		result, appErr := env.admin.ChangePassword(context.Background(), "u-1", dto.ChangePasswordRequest{
			Old: "wrongpass", New: "newpass99",
		})
		require.Nil(t, appErr)
		assert.False(t, result.OK)
		assert.Equal(t, "Invalid password", result.Value)

		user, err := env.db.storage().Users.GetByID(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, hasher.Hash("oldpass", salt), user.PasswordHash)
	})

	t.Run("success clears pending change flag", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{
			ID: "u-1", Name: "alice",
			PasswordHash:        hasher.Hash("oldpass", salt),
			NeedsPasswordChange: true,
		})

		result, appErr := env.admin.ChangePassword(context.Background(), "u-1", dto.ChangePasswordRequest{
			Old: "oldpass", New: "newpass99",
		})
		require.Nil(t, appErr)
		assert.True(t, result.OK)
		assert.Equal(t, "Done", result.Value)

		user, err := env.db.storage().Users.GetByID(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, hasher.Hash("newpass99", salt), user.PasswordHash)
		assert.False(t, user.NeedsPasswordChange)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, appErr := env.admin.ChangePassword(context.Background(), "nobody", dto.ChangePasswordRequest{
			Old: "oldpass", New: "newpass99",
		})
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
	})
}

func TestAddRole(t *testing.T) {
	t.Run("assigns", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{ID: "u-1", Name: "alice"})

		result, appErr := env.admin.AddRole(context.Background(), dto.RoleRequest{UUID: "u-1", Role: "admin"})
		require.Nil(t, appErr)
		assert.Equal(t, "Done", result.Value)

		user, err := env.db.storage().Users.GetByID(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, user.Roles)
	})

	t.Run("already assigned", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{ID: "u-1", Name: "alice", Roles: []string{"admin"}})

		_, appErr := env.admin.AddRole(context.Background(), dto.RoleRequest{UUID: "u-1", Role: "admin"})
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrCodeDuplicate, appErr.Code)
		assert.Equal(t, "Role already assigned", appErr.Message)
	})

	t.Run("missing arguments", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, appErr := env.admin.AddRole(context.Background(), dto.RoleRequest{UUID: "u-1"})
		require.NotNil(t, appErr)
		assert.Equal(t, "Bad Arguments", appErr.Message)

		_, appErr = env.admin.AddRole(context.Background(), dto.RoleRequest{Role: "admin"})
		require.NotNil(t, appErr)
		assert.Equal(t, "Bad Arguments", appErr.Message)
	})
}

func TestDelRole(t *testing.T) {
	t.Run("removes", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{ID: "u-1", Name: "alice", Roles: []string{"crew", "admin"}})

		result, appErr := env.admin.DelRole(context.Background(), dto.RoleRequest{UUID: "u-1", Role: "admin"})
		require.Nil(t, appErr)
		assert.Equal(t, "Done", result.Value)

		user, err := env.db.storage().Users.GetByID(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"crew"}, user.Roles)
	})

	t.Run("absent role is a no-op", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{ID: "u-1", Name: "alice", Roles: []string{"crew"}})

		result, appErr := env.admin.DelRole(context.Background(), dto.RoleRequest{UUID: "u-1", Role: "admin"})
		require.Nil(t, appErr)
		assert.Equal(t, "Done", result.Value)

		user, err := env.db.storage().Users.GetByID(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"crew"}, user.Roles)
	})
}

func TestToggleActive(t *testing.T) {
	env := newTestEnv(t, nil)
	seedUser(t, env, &models.User{ID: "u-1", Name: "alice", Active: true})

	off := false
	result, appErr := env.admin.ToggleActive(context.Background(), dto.ToggleRequest{UUID: "u-1", Status: &off})
	require.Nil(t, appErr)
	assert.Equal(t, "Done", result.Value)

	user, err := env.db.storage().Users.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, user.Active)

	_, appErr = env.admin.ToggleActive(context.Background(), dto.ToggleRequest{UUID: "u-1"})
	require.NotNil(t, appErr)
	assert.Equal(t, "Bad Arguments", appErr.Message)
}

func TestDeleteUser(t *testing.T) {
	t.Run("removes user and profile", func(t *testing.T) {
		env := newTestEnv(t, nil)
		ctx := context.Background()
		seedUser(t, env, &models.User{ID: "u-1", Name: "alice"})
		require.NoError(t, env.db.storage().Profiles.Create(ctx, &models.Profile{ID: "p-1", Owner: "u-1"}))

		result, appErr := env.admin.DeleteUser(ctx, dto.DeleteUserRequest{UUID: "u-1"})
		require.Nil(t, appErr)
		assert.Equal(t, "u-1", result.Value)
		assert.Equal(t, 0, env.db.userCount())
		assert.Equal(t, 0, env.db.profileCount())
	})

	t.Run("user without profile", func(t *testing.T) {
		env := newTestEnv(t, nil)
		seedUser(t, env, &models.User{ID: "u-1", Name: "alice"})

		result, appErr := env.admin.DeleteUser(context.Background(), dto.DeleteUserRequest{UUID: "u-1"})
		require.Nil(t, appErr)
		assert.Equal(t, "u-1", result.Value)
		assert.Equal(t, 0, env.db.userCount())
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, appErr := env.admin.DeleteUser(context.Background(), dto.DeleteUserRequest{UUID: "nobody"})
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
	})
}
