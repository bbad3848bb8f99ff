package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

// RecordService serves medical records and prescriptions.
type RecordService struct {
	records      RecordStore
	users        UserStore
	appointments AppointmentStore
	now          func() time.Time
	log          zerolog.Logger
}

func NewRecordService(records RecordStore, users UserStore, appointments AppointmentStore, logger zerolog.Logger) *RecordService {
	return &RecordService{
		records:      records,
		users:        users,
		appointments: appointments,
		now:          time.Now,
		log:          logger.With().Str("component", "records").Logger(),
	}
}

// RecordQuery filters a record listing. Empty and "All" mean no filter.
type RecordQuery struct {
	Status    string
	VisitType string
}

func (q RecordQuery) filter(patientID string) (repository.RecordFilter, error) {
	f := repository.RecordFilter{PatientID: patientID}
	if v := strings.TrimSpace(q.Status); v != "" && v != "All" {
		f.Status = models.RecordStatus(v)
	}
	if v := strings.TrimSpace(q.VisitType); v != "" && v != "All" {
		f.VisitType = models.VisitType(v)
		if !f.VisitType.Valid() {
			return f, apperrors.InvalidInput("invalid-visit-type", "unknown visit type %q", v)
		}
	}
	return f, nil
}

// ListOwn returns the calling patient's records, most recent first.
func (s *RecordService) ListOwn(ctx context.Context, actor Actor, q RecordQuery) ([]models.MedicalRecord, error) {
	return s.list(ctx, actor.ID, q)
}

// ListForPatient lets a doctor read any patient's records; a patient may
// only read their own.
func (s *RecordService) ListForPatient(ctx context.Context, actor Actor, patientID string, q RecordQuery) ([]models.MedicalRecord, error) {
	if actor.Role != models.RoleDoctor && actor.ID != patientID {
		return nil, apperrors.Forbidden("not-owner", "You are not authorized to view these medical records")
	}
	return s.list(ctx, patientID, q)
}

func (s *RecordService) list(ctx context.Context, patientID string, q RecordQuery) ([]models.MedicalRecord, error) {
	f, err := q.filter(patientID)
	if err != nil {
		return nil, err
	}
	list, err := s.records.ListRecords(ctx, f)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list medical records")
	}
	return list, nil
}

func (s *RecordService) GetOwn(ctx context.Context, actor Actor, id string) (*models.MedicalRecord, error) {
	rec, err := s.records.GetRecord(ctx, id)
	if isNotFound(err) {
		return nil, apperrors.NotFound("not-found", "Medical record not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load medical record")
	}
	if rec.PatientID != actor.ID {
		return nil, apperrors.NotFound("not-found", "Medical record not found")
	}
	return rec, nil
}

// Stats counts the caller's records by visit type.
func (s *RecordService) Stats(ctx context.Context, actor Actor) (*models.RecordStats, error) {
	list, err := s.records.ListRecords(ctx, repository.RecordFilter{PatientID: actor.ID})
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list medical records")
	}
	stats := &models.RecordStats{ByVisitType: make(map[models.VisitType]int)}
	for _, rec := range list {
		stats.Total++
		if rec.Status == models.RecordCompleted {
			stats.Completed++
		}
		stats.ByVisitType[rec.VisitType]++
	}
	return stats, nil
}

// CreateRecordInput is a doctor's new record for a patient.
type CreateRecordInput struct {
	PatientID     string
	AppointmentID string
	VisitType     string
	Diagnosis     string
	Symptoms      []string
	Notes         string
	Vitals        *models.Vitals
	Date          string
}

func (s *RecordService) Create(ctx context.Context, actor Actor, in CreateRecordInput) (*models.MedicalRecord, error) {
	if actor.Role != models.RoleDoctor {
		return nil, apperrors.Forbidden("not-owner", "only doctors can write medical records")
	}
	in.PatientID = strings.TrimSpace(in.PatientID)
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	if in.PatientID == "" || in.Diagnosis == "" {
		return nil, apperrors.InvalidInput("missing-fields", "patientId and diagnosis are required")
	}
	visit := models.VisitConsultation
	if v := strings.TrimSpace(in.VisitType); v != "" {
		visit = models.VisitType(v)
		if !visit.Valid() {
			return nil, apperrors.InvalidInput("invalid-visit-type", "unknown visit type %q", v)
		}
	}
	date := s.now()
	if raw := strings.TrimSpace(in.Date); raw != "" {
		t, err := parseBookingTime("date", raw)
		if err != nil {
			return nil, err
		}
		date = t
	}

	patient, err := s.users.GetByID(ctx, in.PatientID)
	if isNotFound(err) || (err == nil && patient.Role != models.RolePatient) {
		return nil, apperrors.NotFound("not-found", "Patient not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load patient")
	}

	rec := &models.MedicalRecord{
		PatientID:  patient.ID,
		DoctorID:   actor.ID,
		VisitType:  visit,
		Diagnosis:  in.Diagnosis,
		Symptoms:   trimAll(in.Symptoms),
		Notes:      strings.TrimSpace(in.Notes),
		Vitals:     in.Vitals,
		RecordDate: date,
		Status:     models.RecordCompleted,
	}
	if id := strings.TrimSpace(in.AppointmentID); id != "" {
		appt, err := s.appointments.Get(ctx, id)
		if isNotFound(err) || (err == nil && (appt.DoctorID != actor.ID || appt.PatientID != patient.ID)) {
			return nil, apperrors.NotFound("appointment-not-found", "Appointment not found")
		}
		if err != nil {
			return nil, storageFailure(s.log, err, "failed to load appointment")
		}
		rec.AppointmentID = &appt.ID
	}

	if err := s.records.CreateRecord(ctx, rec); err != nil {
		return nil, storageFailure(s.log, err, "failed to create medical record")
	}
	return rec, nil
}

func trimAll(in []string) []string {
	out := []string{}
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ListPrescriptions returns the caller's prescriptions. isActive is "",
// "true" or "false".
func (s *RecordService) ListPrescriptions(ctx context.Context, actor Actor, isActive string) ([]models.Prescription, error) {
	f := repository.PrescriptionFilter{PatientID: actor.ID}
	if raw := strings.TrimSpace(isActive); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid-value", "isActive must be true or false")
		}
		f.IsActive = &v
	}
	list, err := s.records.ListPrescriptions(ctx, f)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list prescriptions")
	}
	return list, nil
}

func (s *RecordService) GetPrescription(ctx context.Context, actor Actor, id string) (*models.Prescription, error) {
	p, err := s.records.GetPrescription(ctx, id)
	if isNotFound(err) {
		return nil, apperrors.NotFound("not-found", "Prescription not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load prescription")
	}
	if p.PatientID != actor.ID {
		return nil, apperrors.NotFound("not-found", "Prescription not found")
	}
	return p, nil
}

func (s *RecordService) ActivePrescriptionCount(ctx context.Context, actor Actor) (int, error) {
	n, err := s.records.CountActivePrescriptions(ctx, actor.ID)
	if err != nil {
		return 0, storageFailure(s.log, err, "failed to count prescriptions")
	}
	return n, nil
}
