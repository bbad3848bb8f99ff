package memory

import (
	"context"
	"fmt"
	"sort"

	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

type RecordRepository struct{ s *Store }

func (r *RecordRepository) ListRecords(_ context.Context, f repository.RecordFilter) ([]models.MedicalRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.MedicalRecord{}
	for _, rec := range s.records {
		if rec.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.VisitType != "" && rec.VisitType != f.VisitType {
			continue
		}
		if d, ok := s.doctors[rec.DoctorID]; ok {
			rec.Doctor = &d
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordDate.After(out[j].RecordDate) })
	return out, nil
}

func (r *RecordRepository) GetRecord(_ context.Context, id string) (*models.MedicalRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get record %s: %w", id, repository.ErrNotFound)
	}
	if d, ok := s.doctors[rec.DoctorID]; ok {
		rec.Doctor = &d
	}
	return &rec, nil
}

func (r *RecordRepository) CreateRecord(_ context.Context, rec *models.MedicalRecord) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&rec.BaseModel)
	stored := *rec
	stored.Doctor = nil
	s.records[rec.ID] = stored
	return nil
}

func (r *RecordRepository) ListPrescriptions(_ context.Context, f repository.PrescriptionFilter) ([]models.Prescription, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Prescription{}
	for _, p := range s.prescriptions {
		if p.PatientID != f.PatientID {
			continue
		}
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		if d, ok := s.doctors[p.DoctorID]; ok {
			p.Doctor = &d
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *RecordRepository) GetPrescription(_ context.Context, id string) (*models.Prescription, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prescriptions[id]
	if !ok {
		return nil, fmt.Errorf("get prescription %s: %w", id, repository.ErrNotFound)
	}
	if d, ok := s.doctors[p.DoctorID]; ok {
		p.Doctor = &d
	}
	return &p, nil
}

func (r *RecordRepository) CountActivePrescriptions(_ context.Context, patientID string) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.prescriptions {
		if p.PatientID == patientID && p.IsActive {
			n++
		}
	}
	return n, nil
}
