// Package services holds the booking rules: slot availability and conflict
// checks, the appointment and bed lifecycles, review aggregation and the
// patient record views. Storage is reached through the interfaces below,
// implemented by internal/repository and internal/repository/memory.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role models.Role
}

type AppointmentStore interface {
	Create(ctx context.Context, a *models.Appointment) error
	Get(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, f repository.AppointmentFilter) ([]models.Appointment, error)
	Transition(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, rx *models.Prescription) error
	UpdateNotes(ctx context.Context, id, notes string) error
}

type DoctorStore interface {
	List(ctx context.Context, f repository.DoctorFilter) ([]models.Doctor, error)
	Get(ctx context.Context, id string) (*models.Doctor, error)
	Specializations(ctx context.Context) ([]string, error)
	Create(ctx context.Context, d *models.Doctor) error
	UpdateProfile(ctx context.Context, d *models.Doctor) error
}

type BedStore interface {
	GetBed(ctx context.Context, id string) (*models.Bed, error)
	CreateBed(ctx context.Context, b *models.Bed) error
	ListAvailable(ctx context.Context, ward models.WardType) ([]models.Bed, error)
	WardCounts(ctx context.Context) ([]models.WardCounts, error)
	SetBedStatus(ctx context.Context, id string, from, to models.BedStatus) error
	GetBooking(ctx context.Context, id string) (*models.BedBooking, error)
	FindActiveBooking(ctx context.Context, patientID string) (*models.BedBooking, error)
	ListBookings(ctx context.Context, f repository.BookingFilter) ([]models.BedBooking, error)
	Reserve(ctx context.Context, booking *models.BedBooking) error
	MoveBooking(ctx context.Context, booking *models.BedBooking, from models.BedBookingStatus, bed repository.BedChange) error
}

type ReviewStore interface {
	Create(ctx context.Context, r *models.Review) (*models.Doctor, error)
	ExistsForAppointment(ctx context.Context, appointmentID string) (bool, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.Review, error)
}

type RecordStore interface {
	ListRecords(ctx context.Context, f repository.RecordFilter) ([]models.MedicalRecord, error)
	GetRecord(ctx context.Context, id string) (*models.MedicalRecord, error)
	CreateRecord(ctx context.Context, r *models.MedicalRecord) error
	ListPrescriptions(ctx context.Context, f repository.PrescriptionFilter) ([]models.Prescription, error)
	GetPrescription(ctx context.Context, id string) (*models.Prescription, error)
	CountActivePrescriptions(ctx context.Context, patientID string) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f repository.UserFilter) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
	SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenID string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// storageFailure logs an unexpected repository error and hides it behind an
// Internal error for the caller.
func storageFailure(log zerolog.Logger, err error, msg string) error {
	log.Error().Err(err).Msg(msg)
	return apperrors.Internal(err, "%s", msg)
}

func isNotFound(err error) bool  { return errors.Is(err, repository.ErrNotFound) }
func isDuplicate(err error) bool { return errors.Is(err, repository.ErrDuplicate) }
func isStale(err error) bool     { return errors.Is(err, repository.ErrStale) }
