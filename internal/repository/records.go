package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"medicare-server/internal/models"
)

// RecordRepository stores medical records and prescriptions.
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) ListRecords(ctx context.Context, f RecordFilter) ([]models.MedicalRecord, error) {
	q := r.db.WithContext(ctx).Preload("Doctor").Where("patient_id = ?", f.PatientID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.VisitType != "" {
		q = q.Where("visit_type = ?", f.VisitType)
	}
	var out []models.MedicalRecord
	if err := q.Order("record_date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list records: %w", translate(err))
	}
	return out, nil
}

func (r *RecordRepository) GetRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	var rec models.MedicalRecord
	if err := r.db.WithContext(ctx).Preload("Doctor").First(&rec, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, translate(err))
	}
	return &rec, nil
}

func (r *RecordRepository) CreateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	if err := r.db.WithContext(ctx).Omit("Doctor").Create(rec).Error; err != nil {
		return fmt.Errorf("create record: %w", translate(err))
	}
	return nil
}

func (r *RecordRepository) ListPrescriptions(ctx context.Context, f PrescriptionFilter) ([]models.Prescription, error) {
	q := r.db.WithContext(ctx).Preload("Doctor").Where("patient_id = ?", f.PatientID)
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	var out []models.Prescription
	if err := q.Order("date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", translate(err))
	}
	return out, nil
}

func (r *RecordRepository) GetPrescription(ctx context.Context, id string) (*models.Prescription, error) {
	var p models.Prescription
	if err := r.db.WithContext(ctx).Preload("Doctor").First(&p, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get prescription %s: %w", id, translate(err))
	}
	return &p, nil
}

// CountActivePrescriptions counts a patient's active prescriptions.
func (r *RecordRepository) CountActivePrescriptions(ctx context.Context, patientID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Prescription{}).
		Where("patient_id = ? AND is_active = ?", patientID, true).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count prescriptions: %w", translate(err))
	}
	return int(n), nil
}
