package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"medicare-server/internal/models"
)

// AppointmentRepository stores appointments.
type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment. A taken slot key yields ErrDuplicate.
func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	if err := r.db.WithContext(ctx).Omit("Patient", "Doctor").Create(a).Error; err != nil {
		return fmt.Errorf("create appointment: %w", translate(err))
	}
	return nil
}

// Get loads one appointment with its patient and doctor.
func (r *AppointmentRepository) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db.WithContext(ctx).Preload("Patient").Preload("Doctor").First(&a, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, translate(err))
	}
	return &a, nil
}

// List returns appointments matching f.
func (r *AppointmentRepository) List(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Date != nil {
		q = q.Where("date = ?", *f.Date)
	}
	if f.TimeSlot != "" {
		q = q.Where("time_slot = ?", f.TimeSlot)
	}
	if f.Preload {
		q = q.Preload("Patient").Preload("Doctor")
	}

	switch f.Sort {
	case SortByStatus:
		q = q.Order("status ASC").Order("date ASC")
	case SortNewest:
		q = q.Order("created_at DESC")
	case SortDateDesc:
		q = q.Order("date DESC").Order("created_at DESC")
	default:
		q = q.Order("date ASC").Order("time_slot ASC")
	}

	var out []models.Appointment
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", translate(err))
	}
	return out, nil
}

// Transition persists a status change of a, which must still be in status
// from. a already carries the new status and its derived fields. When rx is
// non-nil it is inserted in the same transaction.
func (r *AppointmentRepository) Transition(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, rx *models.Prescription) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(a).
			Select("status", "rejection_reason", "prescription", "slot_key", "updated_at").
			Where("status = ?", from).
			Updates(a)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStale
		}
		if rx != nil {
			if err := tx.Omit("Doctor").Create(rx).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transition appointment %s: %w", a.ID, err)
	}
	return nil
}

// UpdateNotes replaces the free-text notes.
func (r *AppointmentRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Update("notes", notes)
	if res.Error != nil {
		return fmt.Errorf("update notes: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 affected rows when the value is unchanged.
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("update notes: %w", translate(err))
		}
		if n == 0 {
			return fmt.Errorf("update notes: %w", ErrNotFound)
		}
	}
	return nil
}
