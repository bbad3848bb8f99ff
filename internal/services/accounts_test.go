package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/models"
	"medicare-server/internal/utils"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, NewUserInput{
		FirstName: "Nila", LastName: "Das", Email: " Nila@Example.COM ", Password: "s3cretpass", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, u.Role)
	assert.Equal(t, "nila@example.com", u.Email)
	assert.True(t, u.CheckPassword("s3cretpass"))

	_, err = f.accounts.Register(ctx, NewUserInput{FirstName: "Nila", Email: "nila@example.com", Password: "s3cretpass"})
	requireAppError(t, err, apperrors.KindConflict, "duplicate-email")

	_, err = f.accounts.Register(ctx, NewUserInput{FirstName: "Short", Email: "short@example.com", Password: "abc"})
	requireAppError(t, err, apperrors.KindInvalidInput, "weak-password")

	_, err = f.accounts.Register(ctx, NewUserInput{Email: "x@example.com", Password: "s3cretpass"})
	requireAppError(t, err, apperrors.KindInvalidInput, "missing-fields")
}

func TestCreateUser_Role(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.CreateUser(ctx, NewUserInput{FirstName: "Kiran", Email: "kiran@medicare.test", Password: "s3cretpass", Role: models.RoleDoctor})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, u.Role)

	_, err = f.accounts.CreateUser(ctx, NewUserInput{FirstName: "X", Email: "x@medicare.test", Password: "s3cretpass", Role: "nurse"})
	requireAppError(t, err, apperrors.KindInvalidInput, "invalid-role")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, pair, err := f.accounts.Login(ctx, "RAVI@medicare.test", "password123")
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, user.ID)

	claims, err := utils.ValidateToken(pair.AccessToken, testConfig().JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, claims.UserID)
	assert.Equal(t, models.RolePatient, claims.Role)

	_, _, err = f.accounts.Login(ctx, "ravi@medicare.test", "wrong-password")
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-credentials")

	_, _, err = f.accounts.Login(ctx, "nobody@medicare.test", "password123")
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-credentials")
}

func TestRefresh_RotatesAndDetectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, first, err := f.accounts.Login(ctx, "ravi@medicare.test", "password123")
	require.NoError(t, err)

	second, err := f.accounts.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replaying the rotated token ends every session, including the new one.
	_, err = f.accounts.Refresh(ctx, first.RefreshToken)
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-token")

	_, err = f.accounts.Refresh(ctx, second.RefreshToken)
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-token")
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.accounts.Login(ctx, "ravi@medicare.test", "password123")
	require.NoError(t, err)

	_, err = f.accounts.Refresh(ctx, pair.AccessToken)
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-token")

	_, err = f.accounts.Refresh(ctx, "garbage")
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-token")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.accounts.Login(ctx, "ravi@medicare.test", "password123")
	require.NoError(t, err)

	require.NoError(t, f.accounts.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.accounts.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.accounts.Logout(ctx, "not-a-token"))

	_, err = f.accounts.Refresh(ctx, pair.RefreshToken)
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-token")
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.accounts.Login(ctx, "ravi@medicare.test", "password123")
	require.NoError(t, err)

	err = f.accounts.ChangePassword(ctx, f.patient, "wrong-password", "newpassword1")
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-credentials")

	err = f.accounts.ChangePassword(ctx, f.patient, "password123", "short")
	requireAppError(t, err, apperrors.KindInvalidInput, "weak-password")

	require.NoError(t, f.accounts.ChangePassword(ctx, f.patient, "password123", "newpassword1"))

	_, err = f.accounts.Refresh(ctx, pair.RefreshToken)
	requireAppError(t, err, apperrors.KindUnauthorized, "invalid-token")

	_, _, err = f.accounts.Login(ctx, "ravi@medicare.test", "newpassword1")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	phone, dob := " +91 90000 00000 ", "1990-04-12"
	u, err := f.accounts.UpdateProfile(ctx, f.patient, ProfileUpdate{PhoneNumber: &phone, DateOfBirth: &dob})
	require.NoError(t, err)
	assert.Equal(t, "+91 90000 00000", u.PhoneNumber)
	require.NotNil(t, u.DateOfBirth)
	assert.Equal(t, 1990, u.DateOfBirth.Year())

	bad := "12/04/1990"
	_, err = f.accounts.UpdateProfile(ctx, f.patient, ProfileUpdate{DateOfBirth: &bad})
	requireAppError(t, err, apperrors.KindInvalidInput, "invalid-date")
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	patients, err := f.accounts.ListUsers(ctx, "patient")
	require.NoError(t, err)
	assert.Len(t, patients, 2)

	_, err = f.accounts.ListUsers(ctx, "nurse")
	requireAppError(t, err, apperrors.KindInvalidInput, "invalid-role")

	role := models.RoleDoctor
	u, err := f.accounts.UpdateUser(ctx, f.other.ID, AdminUserUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, u.Role)

	taken := "ravi@medicare.test"
	_, err = f.accounts.UpdateUser(ctx, f.other.ID, AdminUserUpdate{Email: &taken})
	requireAppError(t, err, apperrors.KindConflict, "duplicate-email")

	err = f.accounts.DeleteUser(ctx, f.admin, f.admin.ID)
	requireAppError(t, err, apperrors.KindConflict, "self-delete")

	require.NoError(t, f.accounts.DeleteUser(ctx, f.admin, f.other.ID))
	_, err = f.accounts.GetUser(ctx, f.other.ID)
	requireAppError(t, err, apperrors.KindNotFound, "not-found")

	err = f.accounts.DeleteUser(ctx, f.admin, f.other.ID)
	requireAppError(t, err, apperrors.KindNotFound, "not-found")
}
