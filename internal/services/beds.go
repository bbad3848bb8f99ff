package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/cache"
	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

const bedAvailabilityKey = "beds:availability"

// BedService reserves beds and drives bookings from reservation to discharge.
type BedService struct {
	beds  BedStore
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

func NewBedService(beds BedStore, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *BedService {
	if c == nil {
		c = cache.Noop{}
	}
	return &BedService{
		beds:  beds,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.With().Str("component", "beds").Logger(),
	}
}

// WithClock replaces the clock, for tests.
func (s *BedService) WithClock(now func() time.Time) *BedService {
	s.now = now
	return s
}

func (s *BedService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, bedAvailabilityKey); err != nil {
		s.log.Warn().Err(err).Msg("failed to drop bed availability cache")
	}
}

// Availability summarizes every ward. The result may be up to one cache TTL
// old when another process changed the beds.
func (s *BedService) Availability(ctx context.Context) ([]models.WardSummary, error) {
	var cached []models.WardSummary
	if ok, err := s.cache.Get(ctx, bedAvailabilityKey, &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("bed cache read failed")
	}

	counts, err := s.beds.WardCounts(ctx)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to count beds")
	}
	summary := models.SummarizeWards(counts)
	if err := s.cache.Set(ctx, bedAvailabilityKey, summary, s.ttl); err != nil {
		s.log.Warn().Err(err).Msg("bed cache write failed")
	}
	return summary, nil
}

func (s *BedService) ListAvailable(ctx context.Context, ward string) ([]models.Bed, error) {
	w := models.WardType(strings.TrimSpace(ward))
	if !w.Valid() {
		return nil, apperrors.InvalidInput("invalid-ward", "unknown ward type %q", ward)
	}
	list, err := s.beds.ListAvailable(ctx, w)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list beds")
	}
	return list, nil
}

// BookBedInput is a patient's reservation request.
type BookBedInput struct {
	BedID            string
	AdmissionDate    string
	DischargeDate    string
	Reason           string
	EmergencyContact *models.EmergencyContact
}

// parseBookingTime accepts a bare date or a full RFC3339 timestamp.
func parseBookingTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.InvalidInput("invalid-date", "%s must be YYYY-MM-DD or RFC3339", field)
}

func activeBookingConflict() error {
	return apperrors.Conflict("patient-already-has-active-booking", "You already have an active bed booking")
}

func bedNotAvailable() error {
	return apperrors.Conflict("bed-not-available", "Bed is not available")
}

// Book reserves an Available bed for the calling patient. The booking and the
// bed change commit together.
func (s *BedService) Book(ctx context.Context, actor Actor, in BookBedInput) (*models.BedBooking, error) {
	if actor.Role != models.RolePatient {
		return nil, apperrors.Forbidden("not-owner", "only patients can book beds")
	}
	in.BedID = strings.TrimSpace(in.BedID)
	in.Reason = strings.TrimSpace(in.Reason)
	if in.BedID == "" || in.AdmissionDate == "" || in.DischargeDate == "" || in.Reason == "" {
		return nil, apperrors.InvalidInput("missing-fields", "Please provide all required fields")
	}
	admission, err := parseBookingTime("admissionDate", in.AdmissionDate)
	if err != nil {
		return nil, err
	}
	discharge, err := parseBookingTime("expectedDischarge", in.DischargeDate)
	if err != nil {
		return nil, err
	}
	if !discharge.After(admission) {
		return nil, apperrors.InvalidInput("invalid-date", "discharge date must be after admission date")
	}
	if in.EmergencyContact != nil && strings.TrimSpace(in.EmergencyContact.Name) == "" &&
		strings.TrimSpace(in.EmergencyContact.Phone) == "" {
		in.EmergencyContact = nil
	}

	bed, err := s.beds.GetBed(ctx, in.BedID)
	if isNotFound(err) {
		return nil, apperrors.NotFound("bed-not-found", "Bed not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load bed")
	}
	if err := models.BedMachine.Check(bed.Status, models.BedReserved, actor.Role); err != nil {
		return nil, bedNotAvailable()
	}
	if _, err := s.beds.FindActiveBooking(ctx, actor.ID); err == nil {
		return nil, activeBookingConflict()
	} else if !isNotFound(err) {
		return nil, storageFailure(s.log, err, "failed to check active bookings")
	}

	booking := &models.BedBooking{
		BedID:             bed.ID,
		PatientID:         actor.ID,
		WardType:          bed.WardType,
		BedNumber:         bed.BedNumber,
		AdmissionDate:     admission,
		ExpectedDischarge: discharge,
		Reason:            in.Reason,
		EmergencyContact:  in.EmergencyContact,
		Status:            models.BookingConfirmed,
		TotalAmount:       models.TotalAmount(admission, discharge, bed.PricePerDay),
	}
	booking.SyncActiveKey()
	err = s.beds.Reserve(ctx, booking)
	switch {
	case err == nil:
	case isDuplicate(err):
		return nil, activeBookingConflict()
	case isStale(err):
		return nil, bedNotAvailable()
	default:
		return nil, storageFailure(s.log, err, "failed to reserve bed")
	}
	s.invalidate(ctx)
	s.log.Debug().Str("booking_id", booking.ID).Str("bed_id", bed.ID).Msg("bed reserved")

	bed.Status = models.BedReserved
	bed.Booking = booking.Snapshot()
	booking.Bed = bed
	return booking, nil
}

func (s *BedService) loadBooking(ctx context.Context, id string) (*models.BedBooking, error) {
	b, err := s.beds.GetBooking(ctx, id)
	if isNotFound(err) {
		return nil, apperrors.NotFound("not-found", "Booking not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load bed booking")
	}
	return b, nil
}

// Cancel releases a booking that has not reached admission. Patients may only
// cancel their own bookings; admins may cancel any.
func (s *BedService) Cancel(ctx context.Context, actor Actor, id string) error {
	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin && b.PatientID != actor.ID {
		return apperrors.Forbidden("not-owner", "Not authorized to cancel this booking")
	}
	if b.Status == models.BookingAdmitted {
		return apperrors.Conflict("already-admitted", "Cannot cancel after admission")
	}
	if err := models.BedBookingMachine.Check(b.Status, models.BookingCancelled, actor.Role); err != nil {
		return err
	}
	return s.move(ctx, b, models.BookingCancelled, repository.BedChange{
		From: models.BedReserved,
		To:   models.BedAvailable,
	})
}

// Admit moves a confirmed booking in and marks its bed Occupied.
func (s *BedService) Admit(ctx context.Context, actor Actor, id string) (*models.BedBooking, error) {
	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := models.BedBookingMachine.Check(b.Status, models.BookingAdmitted, actor.Role); err != nil {
		return nil, err
	}
	patient := b.PatientID
	if err := s.move(ctx, b, models.BookingAdmitted, repository.BedChange{
		From:             models.BedReserved,
		To:               models.BedOccupied,
		CurrentPatientID: &patient,
		Booking:          b.Snapshot(),
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// Discharge closes an admitted booking and frees its bed.
func (s *BedService) Discharge(ctx context.Context, actor Actor, id string) (*models.BedBooking, error) {
	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := models.BedBookingMachine.Check(b.Status, models.BookingDischarged, actor.Role); err != nil {
		return nil, err
	}
	now := s.now()
	b.ActualDischarge = &now
	if err := s.move(ctx, b, models.BookingDischarged, repository.BedChange{
		From: models.BedOccupied,
		To:   models.BedAvailable,
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// move persists b's transition to status `to` together with the bed change.
func (s *BedService) move(ctx context.Context, b *models.BedBooking, to models.BedBookingStatus, change repository.BedChange) error {
	from := b.Status
	b.Status = to
	b.SyncActiveKey()
	b.UpdatedAt = s.now()

	err := s.beds.MoveBooking(ctx, b, from, change)
	switch {
	case err == nil:
	case isStale(err):
		current, getErr := s.beds.GetBooking(ctx, b.ID)
		if getErr != nil || current.Status == from {
			return apperrors.Conflict("wrong-current-state", "bed %s is no longer %s", b.BedNumber, change.From)
		}
		if current.Status == models.BookingAdmitted && to == models.BookingCancelled {
			return apperrors.Conflict("already-admitted", "Cannot cancel after admission")
		}
		return apperrors.Conflict("wrong-current-state", "cannot %s bed booking, current status is %s",
			models.BedBookingMachine.Verb(to), current.Status)
	default:
		return storageFailure(s.log, err, "failed to update bed booking")
	}

	s.invalidate(ctx)
	if b.Bed != nil {
		b.Bed.Status = change.To
		b.Bed.CurrentPatientID = change.CurrentPatientID
		b.Bed.Booking = change.Booking
	}
	s.log.Debug().Str("booking_id", b.ID).
		Str("from", string(from)).Str("to", string(to)).
		Msg("bed booking status changed")
	return nil
}

// MyBookings lists the caller's bookings, newest first.
func (s *BedService) MyBookings(ctx context.Context, actor Actor) ([]models.BedBooking, error) {
	list, err := s.beds.ListBookings(ctx, repository.BookingFilter{PatientID: actor.ID})
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list bed bookings")
	}
	return list, nil
}

// ListBookings is the admin view over all bookings.
func (s *BedService) ListBookings(ctx context.Context, status string) ([]models.BedBooking, error) {
	f := repository.BookingFilter{Status: models.BedBookingStatus(strings.TrimSpace(status))}
	if f.Status == "All" {
		f.Status = ""
	}
	list, err := s.beds.ListBookings(ctx, f)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list bed bookings")
	}
	return list, nil
}

// CreateBedInput describes a new bed.
type CreateBedInput struct {
	BedNumber   string
	WardType    string
	Floor       int
	PricePerDay int
	Features    []string
}

func (s *BedService) CreateBed(ctx context.Context, in CreateBedInput) (*models.Bed, error) {
	in.BedNumber = strings.TrimSpace(in.BedNumber)
	ward := models.WardType(strings.TrimSpace(in.WardType))
	if in.BedNumber == "" || in.WardType == "" {
		return nil, apperrors.InvalidInput("missing-fields", "bedNumber and wardType are required")
	}
	if !ward.Valid() {
		return nil, apperrors.InvalidInput("invalid-ward", "unknown ward type %q", in.WardType)
	}
	if in.PricePerDay <= 0 {
		return nil, apperrors.InvalidInput("invalid-value", "pricePerDay must be positive")
	}
	if in.Floor == 0 {
		in.Floor = 1
	}
	if in.Features == nil {
		in.Features = []string{}
	}

	bed := &models.Bed{
		BedNumber:   in.BedNumber,
		WardType:    ward,
		Status:      models.BedAvailable,
		Floor:       in.Floor,
		PricePerDay: in.PricePerDay,
		Features:    in.Features,
	}
	if err := s.beds.CreateBed(ctx, bed); err != nil {
		if isDuplicate(err) {
			return nil, apperrors.Conflict("duplicate-bed", "bed %s already exists in %s ward", bed.BedNumber, ward)
		}
		return nil, storageFailure(s.log, err, "failed to create bed")
	}
	s.invalidate(ctx)
	return bed, nil
}

// SetMaintenance takes an Available bed out of service, or returns a bed in
// Maintenance to Available.
func (s *BedService) SetMaintenance(ctx context.Context, actor Actor, id string, on bool) (*models.Bed, error) {
	bed, err := s.beds.GetBed(ctx, id)
	if isNotFound(err) {
		return nil, apperrors.NotFound("bed-not-found", "Bed not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load bed")
	}
	from, to := models.BedAvailable, models.BedMaintenance
	if !on {
		from, to = models.BedMaintenance, models.BedAvailable
	}
	if bed.Status != from {
		return nil, apperrors.Conflict("wrong-current-state", "cannot %s bed %s, current status is %s",
			models.BedMachine.Verb(to), bed.BedNumber, bed.Status)
	}
	if err := models.BedMachine.Check(bed.Status, to, actor.Role); err != nil {
		return nil, err
	}
	if err := s.beds.SetBedStatus(ctx, bed.ID, from, to); err != nil {
		if isStale(err) {
			return nil, apperrors.Conflict("wrong-current-state", "bed %s was changed by another request", bed.BedNumber)
		}
		return nil, storageFailure(s.log, err, "failed to update bed")
	}
	s.invalidate(ctx)
	bed.Status = to
	return bed, nil
}
