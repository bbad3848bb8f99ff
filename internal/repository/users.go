package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"medicare-server/internal/models"
)

// UserRepository stores accounts and their refresh tokens.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, translate(err))
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("get user by email: %w", translate(err))
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx)
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	var out []models.User
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", translate(err))
	}
	return out, nil
}

// Update saves every column of u.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Omit("RefreshTokens").Save(u).Error; err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, translate(err))
	}
	return nil
}

// Delete removes the user and their refresh tokens.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("delete refresh tokens: %w", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", translate(res.Error))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete user %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// SaveRefreshToken records an issued refresh token.
func (r *UserRepository) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(t).Error; err != nil {
		return fmt.Errorf("save refresh token: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) GetRefreshToken(ctx context.Context, tokenID string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.db.WithContext(ctx).First(&t, "token_id = ?", tokenID).Error; err != nil {
		return nil, fmt.Errorf("get refresh token: %w", translate(err))
	}
	return &t, nil
}

// RevokeRefreshToken revokes a token that is not yet revoked. Revoking it
// twice yields ErrStale, which is how a replayed token is detected.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	res := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_id = ? AND is_revoked = ?", tokenID, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("revoke refresh token: %w", ErrStale)
	}
	return nil
}

// RevokeAllRefreshTokens revokes every live token of a user.
func (r *UserRepository) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", translate(err))
	}
	return nil
}

// Ping checks the database connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
