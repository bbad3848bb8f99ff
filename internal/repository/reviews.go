package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medicare-server/internal/models"
)

// ReviewRepository stores reviews and keeps doctor ratings in step with them.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts the review and recomputes the doctor's rating and review
// count in the same transaction. The doctor row is locked first so reviews
// of one doctor are applied one at a time. A second review of the same
// appointment yields ErrDuplicate. The updated doctor is returned.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) (*models.Doctor, error) {
	var doctor models.Doctor
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doctor, "id = ?", review.DoctorID).Error
		if err != nil {
			return translate(err)
		}
		if err := tx.Omit("Patient").Create(review).Error; err != nil {
			return translate(err)
		}

		var ratings []int
		if err := tx.Model(&models.Review{}).Where("doctor_id = ?", review.DoctorID).Pluck("rating", &ratings).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Doctor{}).Where("id = ?", review.DoctorID).Updates(map[string]interface{}{
			"rating":      models.ComputeRating(ratings),
			"num_reviews": len(ratings),
		})
		if res.Error != nil {
			return res.Error
		}
		return translate(tx.First(&doctor, "id = ?", review.DoctorID).Error)
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return &doctor, nil
}

// ExistsForAppointment reports whether the appointment was already reviewed.
func (r *ReviewRepository) ExistsForAppointment(ctx context.Context, appointmentID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).Where("appointment_id = ?", appointmentID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count reviews: %w", translate(err))
	}
	return n > 0, nil
}

// ListByDoctor returns a doctor's reviews, newest first.
func (r *ReviewRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.Review, error) {
	var out []models.Review
	err := r.db.WithContext(ctx).Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", translate(err))
	}
	return out, nil
}
