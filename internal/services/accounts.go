package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/config"
	"medicare-server/internal/models"
	"medicare-server/internal/repository"
	"medicare-server/internal/utils"
)

// AccountService handles sign-up, sessions and user administration.
type AccountService struct {
	users UserStore
	cfg   *config.Config
	now   func() time.Time
	log   zerolog.Logger
}

func NewAccountService(users UserStore, cfg *config.Config, logger zerolog.Logger) *AccountService {
	return &AccountService{
		users: users,
		cfg:   cfg,
		now:   time.Now,
		log:   logger.With().Str("component", "accounts").Logger(),
	}
}

// NewUserInput describes an account to create.
type NewUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	Role        models.Role
}

// Register creates a patient account. Staff accounts are created by admins.
func (s *AccountService) Register(ctx context.Context, in NewUserInput) (*models.User, error) {
	in.Role = models.RolePatient
	return s.create(ctx, in)
}

// CreateUser creates an account of any role.
func (s *AccountService) CreateUser(ctx context.Context, in NewUserInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, apperrors.InvalidInput("invalid-role", "unknown role %q", in.Role)
	}
	return s.create(ctx, in)
}

func (s *AccountService) create(ctx context.Context, in NewUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" || strings.TrimSpace(in.FirstName) == "" {
		return nil, apperrors.InvalidInput("missing-fields", "firstName, email and password are required")
	}
	if len(in.Password) < 8 {
		return nil, apperrors.InvalidInput("weak-password", "password must be at least 8 characters")
	}

	user := &models.User{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       email,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Role:        in.Role,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperrors.Internal(err, "failed to hash password")
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, apperrors.Conflict("duplicate-email", "User with this email already exists")
		}
		return nil, storageFailure(s.log, err, "failed to create user")
	}
	return user, nil
}

func invalidCredentials() error {
	return apperrors.Unauthorized("invalid-credentials", "Invalid email or password")
}

// Login checks a password and opens a session.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, *utils.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if isNotFound(err) {
		return nil, nil, invalidCredentials()
	}
	if err != nil {
		return nil, nil, storageFailure(s.log, err, "failed to load user")
	}
	if !user.CheckPassword(password) {
		return nil, nil, invalidCredentials()
	}
	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *AccountService) issue(ctx context.Context, user *models.User) (*utils.TokenPair, error) {
	pair, err := utils.GenerateTokens(user, s.cfg)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to generate tokens")
	}
	if err := s.users.SaveRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenID:   pair.RefreshID,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		return nil, storageFailure(s.log, err, "failed to store refresh token")
	}
	return pair, nil
}

func invalidRefresh() error {
	return apperrors.Unauthorized("invalid-token", "Refresh token not found, expired, or revoked")
}

// Refresh exchanges a refresh token for a new pair. Each refresh token works
// once; presenting a used one revokes every session of its user.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := utils.ValidateToken(refreshToken, s.cfg.JWTRefreshSecret)
	if err != nil || claims.ID == "" {
		return nil, invalidRefresh()
	}
	stored, err := s.users.GetRefreshToken(ctx, claims.ID)
	if isNotFound(err) {
		return nil, invalidRefresh()
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load refresh token")
	}
	if stored.UserID != claims.UserID || !stored.Usable(s.now()) {
		if stored.IsRevoked {
			s.revokeAll(ctx, stored.UserID)
		}
		return nil, invalidRefresh()
	}

	if err := s.users.RevokeRefreshToken(ctx, stored.TokenID); err != nil {
		if isStale(err) {
			s.revokeAll(ctx, stored.UserID)
			return nil, invalidRefresh()
		}
		return nil, storageFailure(s.log, err, "failed to revoke refresh token")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if isNotFound(err) {
		return nil, invalidRefresh()
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load user")
	}
	return s.issue(ctx, user)
}

func (s *AccountService) revokeAll(ctx context.Context, userID string) {
	s.log.Warn().Str("user_id", userID).Msg("refresh token reuse, revoking all sessions")
	if err := s.users.RevokeAllRefreshTokens(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to revoke sessions")
	}
}

// Logout revokes a refresh token. Unknown or already revoked tokens are not
// an error.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := utils.ValidateToken(refreshToken, s.cfg.JWTRefreshSecret)
	if err != nil || claims.ID == "" {
		return nil
	}
	err = s.users.RevokeRefreshToken(ctx, claims.ID)
	if err == nil || isStale(err) || isNotFound(err) {
		return nil
	}
	return storageFailure(s.log, err, "failed to revoke refresh token")
}

func (s *AccountService) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, apperrors.NotFound("not-found", "User not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load user")
	}
	return u, nil
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil fields are left alone; DateOfBirth is YYYY-MM-DD.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DateOfBirth *string
}

func (s *AccountService) UpdateProfile(ctx context.Context, actor Actor, in ProfileUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) != "" {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.DateOfBirth != nil {
		raw := strings.TrimSpace(*in.DateOfBirth)
		if raw == "" {
			user.DateOfBirth = nil
		} else {
			dob, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return nil, apperrors.InvalidInput("invalid-date", "dateOfBirth must be YYYY-MM-DD")
			}
			if dob.After(s.now()) {
				return nil, apperrors.InvalidInput("invalid-date", "dateOfBirth cannot be in the future")
			}
			user.DateOfBirth = &dob
		}
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storageFailure(s.log, err, "failed to update profile")
	}
	return user, nil
}

// ListUsers lists accounts, optionally of one role.
func (s *AccountService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	f := repository.UserFilter{}
	if r := models.Role(strings.ToLower(strings.TrimSpace(role))); r != "" {
		if !r.Valid() {
			return nil, apperrors.InvalidInput("invalid-role", "unknown role %q", role)
		}
		f.Role = r
	}
	list, err := s.users.List(ctx, f)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list users")
	}
	return list, nil
}

// AdminUserUpdate carries the fields an admin may change on any account.
type AdminUserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *models.Role
}

func (s *AccountService) UpdateUser(ctx context.Context, id string, in AdminUserUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) != "" {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.InvalidInput("invalid-role", "unknown role %q", *in.Role)
		}
		user.Role = *in.Role
	}
	if err := s.users.Update(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, apperrors.Conflict("duplicate-email", "User with this email already exists")
		}
		return nil, storageFailure(s.log, err, "failed to update user")
	}
	return user, nil
}

// DeleteUser removes an account and its sessions. Admins cannot delete
// themselves.
func (s *AccountService) DeleteUser(ctx context.Context, actor Actor, id string) error {
	if actor.ID == id {
		return apperrors.Conflict("self-delete", "You cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return apperrors.NotFound("not-found", "User not found")
		}
		return storageFailure(s.log, err, "failed to delete user")
	}
	return nil
}

// ChangePassword replaces the caller's password after checking the current
// one, and ends every other session.
func (s *AccountService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if current == "" || next == "" {
		return apperrors.InvalidInput("missing-fields", "Please provide current and new password")
	}
	if len(next) < 8 {
		return apperrors.InvalidInput("weak-password", "password must be at least 8 characters")
	}
	user, err := s.GetUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(current) {
		return apperrors.Unauthorized("invalid-credentials", "Current password is incorrect")
	}
	if err := user.SetPassword(next); err != nil {
		return apperrors.Internal(err, "failed to hash password")
	}
	if err := s.users.Update(ctx, user); err != nil {
		return storageFailure(s.log, err, "failed to update password")
	}
	if err := s.users.RevokeAllRefreshTokens(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke sessions")
	}
	return nil
}
