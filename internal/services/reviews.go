package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/models"
)

// ReviewService records patient reviews and keeps doctor ratings current.
type ReviewService struct {
	reviews      ReviewStore
	appointments AppointmentStore
	doctors      *DoctorService
	log          zerolog.Logger
}

// NewReviewService builds the service. doctors may be nil; when set, its
// cached listings are dropped after every new review.
func NewReviewService(reviews ReviewStore, appointments AppointmentStore, doctors *DoctorService, logger zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviews:      reviews,
		appointments: appointments,
		doctors:      doctors,
		log:          logger.With().Str("component", "reviews").Logger(),
	}
}

// CreateReviewInput is a patient's review of a completed appointment.
// DoctorID is optional and must match the appointment when given.
type CreateReviewInput struct {
	AppointmentID string
	DoctorID      string
	Rating        int
	Comment       string
}

// CreateReviewResult carries the stored review and the doctor's new rating.
type CreateReviewResult struct {
	Review     *models.Review `json:"review"`
	Rating     float64        `json:"rating"`
	NumReviews int            `json:"numReviews"`
}

func duplicateReview() error {
	return apperrors.Conflict("duplicate-review", "You have already reviewed this appointment")
}

// Create stores a review and recomputes the doctor's rating from all of their
// reviews in the same transaction.
func (s *ReviewService) Create(ctx context.Context, actor Actor, in CreateReviewInput) (*CreateReviewResult, error) {
	in.AppointmentID = strings.TrimSpace(in.AppointmentID)
	in.Comment = strings.TrimSpace(in.Comment)
	if in.AppointmentID == "" || in.Comment == "" || in.Rating == 0 {
		return nil, apperrors.InvalidInput("missing-fields", "Please provide all required fields")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.InvalidInput("invalid-rating", "Rating must be between 1 and 5")
	}

	appt, err := s.appointments.Get(ctx, in.AppointmentID)
	if isNotFound(err) {
		return nil, apperrors.NotFound("appointment-not-found", "Appointment not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load appointment")
	}
	if actor.Role != models.RolePatient || appt.PatientID != actor.ID {
		return nil, apperrors.Forbidden("not-owner", "You can only review your own appointments")
	}
	if appt.Status != models.StatusCompleted {
		return nil, apperrors.Conflict("appointment-not-completed", "You can only review completed appointments")
	}
	if d := strings.TrimSpace(in.DoctorID); d != "" && d != appt.DoctorID {
		return nil, apperrors.InvalidInput("doctor-mismatch", "doctorId does not match the appointment")
	}

	exists, err := s.reviews.ExistsForAppointment(ctx, appt.ID)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to check existing review")
	}
	if exists {
		return nil, duplicateReview()
	}

	review := &models.Review{
		DoctorID:      appt.DoctorID,
		PatientID:     actor.ID,
		AppointmentID: appt.ID,
		Rating:        in.Rating,
		Comment:       in.Comment,
	}
	doctor, err := s.reviews.Create(ctx, review)
	if err != nil {
		if isDuplicate(err) {
			return nil, duplicateReview()
		}
		if isNotFound(err) {
			return nil, apperrors.NotFound("doctor-not-found", "Doctor not found")
		}
		return nil, storageFailure(s.log, err, "failed to save review")
	}
	if s.doctors != nil {
		s.doctors.invalidate(ctx)
	}
	s.log.Debug().Str("doctor_id", doctor.ID).Float64("rating", doctor.Rating).Msg("doctor rating updated")

	return &CreateReviewResult{Review: review, Rating: doctor.Rating, NumReviews: doctor.NumReviews}, nil
}

// ListByDoctor returns a doctor's reviews, newest first.
func (s *ReviewService) ListByDoctor(ctx context.Context, doctorID string) ([]models.Review, error) {
	list, err := s.reviews.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list reviews")
	}
	return list, nil
}
