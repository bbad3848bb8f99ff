package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/calendar"
	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

// slotHolding lists the statuses whose appointments occupy their slot.
// Rejected gives the slot back, like Cancelled.
var slotHolding = []models.AppointmentStatus{
	models.StatusPending, models.StatusConfirmed, models.StatusCompleted,
}

// AppointmentService books appointments and drives their lifecycle.
type AppointmentService struct {
	appointments AppointmentStore
	doctors      DoctorStore
	now          func() time.Time
	log          zerolog.Logger
}

func NewAppointmentService(appointments AppointmentStore, doctors DoctorStore, logger zerolog.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		doctors:      doctors,
		now:          time.Now,
		log:          logger.With().Str("component", "appointments").Logger(),
	}
}

// WithClock replaces the clock, for tests.
func (s *AppointmentService) WithClock(now func() time.Time) *AppointmentService {
	s.now = now
	return s
}

// CreateAppointmentInput is a patient's booking request.
type CreateAppointmentInput struct {
	DoctorID string
	Date     string
	TimeSlot string
	Reason   string
}

// SlotAvailability is the slot picture for one doctor on one day.
// AvailableSlots and BookedSlots partition AllSlots, both in AllSlots order.
type SlotAvailability struct {
	Date           calendar.Date `json:"date"`
	Day            string        `json:"day"`
	DayAvailable   bool          `json:"dayAvailable"`
	AllSlots       []string      `json:"allSlots"`
	BookedSlots    []string      `json:"bookedSlots"`
	AvailableSlots []string      `json:"availableSlots"`
}

// ComputeSlots splits the catalog into booked and available labels. Held
// labels that are not in the catalog are ignored.
func ComputeSlots(catalog, held []string) (booked, available []string) {
	taken := make(map[string]bool, len(held))
	for _, h := range held {
		taken[h] = true
	}
	booked, available = []string{}, []string{}
	for _, slot := range catalog {
		if taken[slot] {
			booked = append(booked, slot)
		} else {
			available = append(available, slot)
		}
	}
	return booked, available
}

// AvailableSlots returns the catalog of a doctor split into booked and free
// slots for date.
func (s *AppointmentService) AvailableSlots(ctx context.Context, doctorID, date string) (*SlotAvailability, error) {
	day, err := calendar.Parse(date)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid-date", "%s", err.Error())
	}
	doctor, err := s.loadDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	held, err := s.heldSlots(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	booked, available := ComputeSlots(doctor.Availability.Slots, held)

	all := append([]string{}, doctor.Availability.Slots...)
	return &SlotAvailability{
		Date:           day,
		Day:            day.ShortWeekday(),
		DayAvailable:   doctor.Availability.WorksOn(day),
		AllSlots:       all,
		BookedSlots:    booked,
		AvailableSlots: available,
	}, nil
}

func (s *AppointmentService) heldSlots(ctx context.Context, doctorID string, day calendar.Date) ([]string, error) {
	list, err := s.appointments.List(ctx, repository.AppointmentFilter{
		DoctorID: doctorID,
		Date:     &day,
		Statuses: slotHolding,
	})
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load booked slots")
	}
	held := make([]string, len(list))
	for i := range list {
		held[i] = list[i].TimeSlot
	}
	return held, nil
}

func (s *AppointmentService) loadDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, doctorID)
	if isNotFound(err) {
		return nil, apperrors.NotFound("doctor-not-found", "Doctor not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load doctor")
	}
	return doctor, nil
}

// Create books a slot for the calling patient. The slot check here gives a
// friendly error; the storage unique key on the slot decides races.
func (s *AppointmentService) Create(ctx context.Context, actor Actor, in CreateAppointmentInput) (*models.Appointment, error) {
	if actor.Role != models.RolePatient {
		return nil, apperrors.Forbidden("not-owner", "only patients can book appointments")
	}
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)
	in.Reason = strings.TrimSpace(in.Reason)
	if in.DoctorID == "" || in.Date == "" || in.TimeSlot == "" || in.Reason == "" {
		return nil, apperrors.InvalidInput("missing-fields", "doctorId, date, timeSlot and reason are required")
	}
	day, err := calendar.Parse(in.Date)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid-date", "%s", err.Error())
	}
	if day.Before(calendar.Today(s.now())) {
		return nil, apperrors.InvalidInput("past-date", "Cannot book an appointment in the past")
	}

	doctor, err := s.loadDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Availability.WorksOn(day) {
		return nil, apperrors.InvalidInput("day-unavailable", "Dr. %s is not available on %s. Available days: %s",
			doctor.Name, day.ShortWeekday(), strings.Join(doctor.Availability.Days, ", "))
	}
	if !doctor.Availability.HasSlot(in.TimeSlot) {
		return nil, apperrors.InvalidInput("unknown-slot", "%s is not one of Dr. %s's slots", in.TimeSlot, doctor.Name)
	}

	held, err := s.heldSlots(ctx, doctor.ID, day)
	if err != nil {
		return nil, err
	}
	for _, h := range held {
		if h == in.TimeSlot {
			return nil, slotConflict()
		}
	}

	appt := &models.Appointment{
		PatientID: actor.ID,
		DoctorID:  doctor.ID,
		Date:      day,
		TimeSlot:  in.TimeSlot,
		Reason:    in.Reason,
		Status:    models.StatusPending,
	}
	appt.SyncSlotKey()
	if err := s.appointments.Create(ctx, appt); err != nil {
		if isDuplicate(err) {
			s.log.Debug().Str("doctor_id", doctor.ID).Str("date", day.String()).Str("slot", in.TimeSlot).
				Msg("slot taken by a concurrent booking")
			return nil, slotConflict()
		}
		return nil, storageFailure(s.log, err, "failed to book appointment")
	}
	appt.Doctor = doctor

	s.log.Debug().Str("appointment_id", appt.ID).Str("patient_id", actor.ID).Msg("appointment booked")
	return appt, nil
}

func slotConflict() error {
	return apperrors.Conflict("slot-conflict", "This time slot is already booked. Please select another slot.")
}

// Decide lets the owning doctor confirm or reject a pending appointment.
func (s *AppointmentService) Decide(ctx context.Context, actor Actor, id string, status models.AppointmentStatus, rejectionReason string) (*models.Appointment, error) {
	if status != models.StatusConfirmed && status != models.StatusRejected {
		return nil, apperrors.InvalidInput("invalid-status-value", `Invalid status. Use "Confirmed" or "Rejected"`)
	}
	rejectionReason = strings.TrimSpace(rejectionReason)
	if status == models.StatusRejected && rejectionReason == "" {
		return nil, apperrors.InvalidInput("missing-reason", "Please provide a reason for rejection")
	}

	appt, err := s.loadForDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := models.AppointmentMachine.Check(appt.Status, status, actor.Role); err != nil {
		return nil, err
	}

	from := appt.Status
	appt.Status = status
	if status == models.StatusRejected {
		appt.RejectionReason = rejectionReason
	}
	if err := s.transition(ctx, appt, from, nil); err != nil {
		return nil, err
	}
	return appt, nil
}

// PrescriptionInput is what a doctor writes when completing an appointment.
type PrescriptionInput struct {
	Medications []models.Medication
	Diagnosis   string
	Notes       string
}

// normalize trims fields and drops unnamed medications.
func (p PrescriptionInput) normalize() (PrescriptionInput, error) {
	out := PrescriptionInput{
		Diagnosis: strings.TrimSpace(p.Diagnosis),
		Notes:     strings.TrimSpace(p.Notes),
	}
	for _, m := range p.Medications {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		m.GenericName = strings.TrimSpace(m.GenericName)
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Duration = strings.TrimSpace(m.Duration)
		m.Instructions = strings.TrimSpace(m.Instructions)
		out.Medications = append(out.Medications, m)
	}
	if len(out.Medications) == 0 {
		return out, apperrors.InvalidInput("missing-prescription", "Please add at least one medication with a name")
	}
	if out.Diagnosis == "" {
		return out, apperrors.InvalidInput("missing-prescription", "Please provide a diagnosis")
	}
	return out, nil
}

// Complete closes a confirmed appointment with a prescription. The
// prescription is also filed in the patient's prescriptions.
func (s *AppointmentService) Complete(ctx context.Context, actor Actor, id string, in PrescriptionInput) (*models.Appointment, error) {
	rx, err := in.normalize()
	if err != nil {
		return nil, err
	}

	appt, err := s.loadForDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := models.AppointmentMachine.Check(appt.Status, models.StatusCompleted, actor.Role); err != nil {
		return nil, err
	}

	now := s.now()
	from := appt.Status
	appt.Status = models.StatusCompleted
	appt.Prescription = &models.AppointmentPrescription{
		Medications: rx.Medications,
		Diagnosis:   rx.Diagnosis,
		Notes:       rx.Notes,
		IssuedAt:    now,
	}
	apptID := appt.ID
	filed := &models.Prescription{
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		AppointmentID: &apptID,
		Medicines:     rx.Medications,
		Diagnosis:     rx.Diagnosis,
		Notes:         rx.Notes,
		Date:          now,
		IsActive:      true,
	}
	if err := s.transition(ctx, appt, from, filed); err != nil {
		return nil, err
	}
	return appt, nil
}

// Cancel lets the owning patient cancel an appointment that is not completed.
func (s *AppointmentService) Cancel(ctx context.Context, actor Actor, id string) error {
	appt, err := s.loadForPatient(ctx, actor, id)
	if err != nil {
		return err
	}
	if appt.Status == models.StatusCompleted {
		return apperrors.Conflict("already-completed", "Cannot cancel a completed appointment")
	}
	if err := models.AppointmentMachine.Check(appt.Status, models.StatusCancelled, actor.Role); err != nil {
		return err
	}

	from := appt.Status
	appt.Status = models.StatusCancelled
	return s.transition(ctx, appt, from, nil)
}

// transition persists appt's new status, expecting the stored one to be from.
func (s *AppointmentService) transition(ctx context.Context, appt *models.Appointment, from models.AppointmentStatus, rx *models.Prescription) error {
	appt.SyncSlotKey()
	appt.UpdatedAt = s.now()
	err := s.appointments.Transition(ctx, appt, from, rx)
	switch {
	case err == nil:
		s.log.Debug().Str("appointment_id", appt.ID).
			Str("from", string(from)).Str("to", string(appt.Status)).
			Msg("appointment status changed")
		return nil
	case isStale(err):
		// Someone else moved it first; report against the state they left.
		current, getErr := s.appointments.Get(ctx, appt.ID)
		if getErr != nil {
			return apperrors.Conflict("wrong-current-state", "appointment was changed by another request")
		}
		if current.Status == models.StatusCompleted && appt.Status == models.StatusCancelled {
			return apperrors.Conflict("already-completed", "Cannot cancel a completed appointment")
		}
		return apperrors.Conflict("wrong-current-state", "cannot %s appointment, current status is %s",
			models.AppointmentMachine.Verb(appt.Status), current.Status)
	case isDuplicate(err):
		return slotConflict()
	default:
		return storageFailure(s.log, err, "failed to update appointment")
	}
}

// UpdateNotes replaces the patient's notes. Allowed in every status.
func (s *AppointmentService) UpdateNotes(ctx context.Context, actor Actor, id, notes string) (*models.Appointment, error) {
	appt, err := s.loadForPatient(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if err := s.appointments.UpdateNotes(ctx, appt.ID, notes); err != nil {
		if isNotFound(err) {
			return nil, notFound()
		}
		return nil, storageFailure(s.log, err, "failed to update notes")
	}
	appt.Notes = notes
	return appt, nil
}

func notFound() error {
	return apperrors.NotFound("not-found", "Appointment not found")
}

// load fetches an appointment and hides it from anyone but its owner.
func (s *AppointmentService) load(ctx context.Context, id string, owns func(*models.Appointment) bool) (*models.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if isNotFound(err) {
		return nil, notFound()
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load appointment")
	}
	if !owns(appt) {
		return nil, notFound()
	}
	return appt, nil
}

func (s *AppointmentService) loadForPatient(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.load(ctx, id, func(a *models.Appointment) bool {
		return actor.Role == models.RolePatient && a.PatientID == actor.ID
	})
}

func (s *AppointmentService) loadForDoctor(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.load(ctx, id, func(a *models.Appointment) bool {
		return actor.Role == models.RoleDoctor && a.DoctorID == actor.ID
	})
}

// parseStatusFilter reads an optional status query value. "" and "All" mean
// no filter.
func parseStatusFilter(raw string) ([]models.AppointmentStatus, error) {
	if raw == "" || raw == "All" {
		return nil, nil
	}
	status := models.AppointmentStatus(raw)
	if !status.Valid() {
		return nil, apperrors.InvalidInput("invalid-status-value", "unknown status %q", raw)
	}
	return []models.AppointmentStatus{status}, nil
}

// ListForPatient returns the caller's appointments, latest date first.
func (s *AppointmentService) ListForPatient(ctx context.Context, actor Actor, status string) ([]models.Appointment, error) {
	statuses, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	list, err := s.appointments.List(ctx, repository.AppointmentFilter{
		PatientID: actor.ID,
		Statuses:  statuses,
		Sort:      repository.SortDateDesc,
		Preload:   true,
	})
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list appointments")
	}
	return list, nil
}

func (s *AppointmentService) GetForPatient(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.loadForPatient(ctx, actor, id)
}

func (s *AppointmentService) GetForDoctor(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.loadForDoctor(ctx, actor, id)
}

// DoctorListQuery filters the doctor's dashboard.
type DoctorListQuery struct {
	Status string
	Date   string
	SortBy string
}

// ListForDoctor returns the doctor's appointments with a per-status summary
// of the returned list.
func (s *AppointmentService) ListForDoctor(ctx context.Context, actor Actor, q DoctorListQuery) ([]models.Appointment, models.StatusSummary, error) {
	statuses, err := parseStatusFilter(q.Status)
	if err != nil {
		return nil, models.StatusSummary{}, err
	}
	f := repository.AppointmentFilter{DoctorID: actor.ID, Statuses: statuses, Preload: true}
	if q.Date != "" {
		day, err := calendar.Parse(q.Date)
		if err != nil {
			return nil, models.StatusSummary{}, apperrors.InvalidInput("invalid-date", "%s", err.Error())
		}
		f.Date = &day
	}
	switch repository.AppointmentSort(q.SortBy) {
	case repository.SortByStatus, repository.SortNewest:
		f.Sort = repository.AppointmentSort(q.SortBy)
	default:
		f.Sort = repository.SortByDate
	}

	list, err := s.appointments.List(ctx, f)
	if err != nil {
		return nil, models.StatusSummary{}, storageFailure(s.log, err, "failed to list appointments")
	}
	if f.Sort == repository.SortByDate {
		sortByDateAndSlot(list)
	}
	return list, models.Summarize(list), nil
}

// Today returns the doctor's pending and confirmed appointments for today in
// slot order.
func (s *AppointmentService) Today(ctx context.Context, actor Actor) ([]models.Appointment, error) {
	today := calendar.Today(s.now())
	list, err := s.appointments.List(ctx, repository.AppointmentFilter{
		DoctorID: actor.ID,
		Date:     &today,
		Statuses: []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed},
		Preload:  true,
	})
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load today's schedule")
	}
	sortByDateAndSlot(list)
	return list, nil
}

// DoctorStats is the doctor dashboard counter block.
type DoctorStats struct {
	models.StatusSummary
	Today int `json:"today"`
}

func (s *AppointmentService) Stats(ctx context.Context, actor Actor) (*DoctorStats, error) {
	all, err := s.appointments.List(ctx, repository.AppointmentFilter{DoctorID: actor.ID})
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load appointment stats")
	}
	stats := &DoctorStats{StatusSummary: models.Summarize(all)}
	today := calendar.Today(s.now())
	for i := range all {
		a := &all[i]
		if a.Date == today && (a.Status == models.StatusPending || a.Status == models.StatusConfirmed) {
			stats.Today++
		}
	}
	return stats, nil
}

// sortByDateAndSlot orders by day then by the clock time of the slot label,
// so "09:30 AM" comes before "01:00 PM".
func sortByDateAndSlot(list []models.Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date.Before(list[j].Date)
		}
		return models.SlotMinutes(list[i].TimeSlot) < models.SlotMinutes(list[j].TimeSlot)
	})
}
