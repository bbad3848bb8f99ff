package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"medicare-server/internal/models"
)

// DoctorRepository stores doctor profiles.
type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// List returns active doctors matching f, best rated first.
func (r *DoctorRepository) List(ctx context.Context, f DoctorFilter) ([]models.Doctor, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if f.Specialization != "" {
		q = q.Where("specialization = ?", f.Specialization)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(hospital) LIKE ?", like, like)
	}
	if f.MinExperience > 0 {
		q = q.Where("experience >= ?", f.MinExperience)
	}
	if f.MaxFees > 0 {
		q = q.Where("fees <= ?", f.MaxFees)
	}

	var out []models.Doctor
	if err := q.Order("rating DESC").Order("experience DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list doctors: %w", translate(err))
	}
	return out, nil
}

func (r *DoctorRepository) Get(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get doctor %s: %w", id, translate(err))
	}
	return &d, nil
}

// Specializations lists the distinct specializations of active doctors.
func (r *DoctorRepository) Specializations(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&models.Doctor{}).
		Where("is_active = ?", true).
		Distinct().Order("specialization ASC").
		Pluck("specialization", &out).Error
	if err != nil {
		return nil, fmt.Errorf("list specializations: %w", translate(err))
	}
	return out, nil
}

func (r *DoctorRepository) Create(ctx context.Context, d *models.Doctor) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create doctor: %w", translate(err))
	}
	return nil
}

// UpdateProfile saves the doctor-editable fields.
func (r *DoctorRepository) UpdateProfile(ctx context.Context, d *models.Doctor) error {
	res := r.db.WithContext(ctx).Model(d).Select("about", "fees", "availability", "updated_at").Updates(d)
	if res.Error != nil {
		return fmt.Errorf("update doctor %s: %w", d.ID, translate(res.Error))
	}
	return nil
}
