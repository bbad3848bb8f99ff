package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"medicare-server/internal/models"
)

// BedRepository stores beds and bed bookings. Every operation that touches
// both a bed and a booking runs in one transaction.
type BedRepository struct {
	db *gorm.DB
}

func NewBedRepository(db *gorm.DB) *BedRepository {
	return &BedRepository{db: db}
}

func (r *BedRepository) GetBed(ctx context.Context, id string) (*models.Bed, error) {
	var b models.Bed
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get bed %s: %w", id, translate(err))
	}
	return &b, nil
}

// CreateBed inserts a bed. A bed number already used in the ward yields ErrDuplicate.
func (r *BedRepository) CreateBed(ctx context.Context, b *models.Bed) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create bed: %w", translate(err))
	}
	return nil
}

// ListAvailable returns Available beds of a ward ordered by floor and number.
func (r *BedRepository) ListAvailable(ctx context.Context, ward models.WardType) ([]models.Bed, error) {
	var out []models.Bed
	err := r.db.WithContext(ctx).
		Where("ward_type = ? AND status = ?", ward, models.BedAvailable).
		Order("floor ASC").Order("bed_number ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list available beds: %w", translate(err))
	}
	return out, nil
}

type wardRow struct {
	WardType    models.WardType
	Total       int
	Available   int
	Occupied    int
	Reserved    int
	Maintenance int
	MinPrice    int
	MaxPrice    int
	AvgPrice    float64
}

// WardCounts aggregates bed counts and prices per ward type.
func (r *BedRepository) WardCounts(ctx context.Context) ([]models.WardCounts, error) {
	var rows []wardRow
	err := r.db.WithContext(ctx).Model(&models.Bed{}).
		Select(`ward_type,
			COUNT(*) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS available,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS occupied,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS reserved,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS maintenance,
			MIN(price_per_day) AS min_price,
			MAX(price_per_day) AS max_price,
			AVG(price_per_day) AS avg_price`,
			models.BedAvailable, models.BedOccupied, models.BedReserved, models.BedMaintenance).
		Group("ward_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate wards: %w", translate(err))
	}

	out := make([]models.WardCounts, len(rows))
	for i, row := range rows {
		out[i] = models.WardCounts(row)
	}
	return out, nil
}

// SetBedStatus moves a bed from one status to another without a booking.
func (r *BedRepository) SetBedStatus(ctx context.Context, id string, from, to models.BedStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Bed{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("set bed status: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set bed status %s: %w", id, ErrStale)
	}
	return nil
}

func (r *BedRepository) GetBooking(ctx context.Context, id string) (*models.BedBooking, error) {
	var b models.BedBooking
	if err := r.db.WithContext(ctx).Preload("Bed").First(&b, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get bed booking %s: %w", id, translate(err))
	}
	return &b, nil
}

// FindActiveBooking returns the patient's Confirmed or Admitted booking.
func (r *BedRepository) FindActiveBooking(ctx context.Context, patientID string) (*models.BedBooking, error) {
	var b models.BedBooking
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status IN ?", patientID,
			[]models.BedBookingStatus{models.BookingConfirmed, models.BookingAdmitted}).
		First(&b).Error
	if err != nil {
		return nil, fmt.Errorf("find active booking: %w", translate(err))
	}
	return &b, nil
}

// ListBookings returns bookings matching f, newest first.
func (r *BedRepository) ListBookings(ctx context.Context, f BookingFilter) ([]models.BedBooking, error) {
	q := r.db.WithContext(ctx).Preload("Bed")
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.BedID != "" {
		q = q.Where("bed_id = ?", f.BedID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.BedBooking
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list bed bookings: %w", translate(err))
	}
	return out, nil
}

// Reserve inserts booking and flips its bed from Available to Reserved in
// one transaction. ErrDuplicate means the patient already holds an active
// booking; ErrStale means the bed was no longer Available.
func (r *BedRepository) Reserve(ctx context.Context, booking *models.BedBooking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Bed").Create(booking).Error; err != nil {
			return translate(err)
		}
		return moveBed(tx, booking.BedID, BedChange{
			From:    models.BedAvailable,
			To:      models.BedReserved,
			Booking: booking.Snapshot(),
		})
	})
	if err != nil {
		return fmt.Errorf("reserve bed %s: %w", booking.BedID, err)
	}
	return nil
}

// MoveBooking persists a booking transition from status from together with
// the matching bed change, atomically.
func (r *BedRepository) MoveBooking(ctx context.Context, booking *models.BedBooking, from models.BedBookingStatus, bed BedChange) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(booking).
			Select("status", "actual_discharge", "active_patient_key", "updated_at").
			Where("status = ?", from).
			Updates(booking)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStale
		}
		return moveBed(tx, booking.BedID, bed)
	})
	if err != nil {
		return fmt.Errorf("move bed booking %s: %w", booking.ID, err)
	}
	return nil
}

func moveBed(tx *gorm.DB, bedID string, c BedChange) error {
	snapshot, err := snapshotValue(c.Booking)
	if err != nil {
		return err
	}
	res := tx.Model(&models.Bed{}).
		Where("id = ? AND status = ?", bedID, c.From).
		Updates(map[string]interface{}{
			"status":             c.To,
			"current_patient_id": c.CurrentPatientID,
			"booking":            snapshot,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// snapshotValue encodes the snapshot column for a map update, where gorm
// does not apply the field serializer.
func snapshotValue(s *models.BedSnapshot) (interface{}, error) {
	if s == nil {
		return gorm.Expr("NULL"), nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode bed snapshot: %w", err)
	}
	return string(raw), nil
}
