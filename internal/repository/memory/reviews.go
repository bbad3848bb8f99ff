package memory

import (
	"context"
	"fmt"
	"sort"

	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

type ReviewRepository struct{ s *Store }

func (r *ReviewRepository) Create(_ context.Context, review *models.Review) (*models.Doctor, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.reviewByAppt[review.AppointmentID]; taken {
		return nil, fmt.Errorf("create review: %w", repository.ErrDuplicate)
	}
	doctor, ok := s.doctors[review.DoctorID]
	if !ok {
		return nil, fmt.Errorf("create review: %w", repository.ErrNotFound)
	}

	s.stamp(&review.BaseModel)
	stored := *review
	stored.Patient = nil
	s.reviews[review.ID] = stored
	s.reviewByAppt[review.AppointmentID] = review.ID

	var ratings []int
	for _, rv := range s.reviews {
		if rv.DoctorID == review.DoctorID {
			ratings = append(ratings, rv.Rating)
		}
	}
	doctor.Rating = models.ComputeRating(ratings)
	doctor.NumReviews = len(ratings)
	doctor.UpdatedAt = s.now()
	s.doctors[doctor.ID] = doctor
	return &doctor, nil
}

func (r *ReviewRepository) ExistsForAppointment(_ context.Context, appointmentID string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.reviewByAppt[appointmentID]
	return ok, nil
}

func (r *ReviewRepository) ListByDoctor(_ context.Context, doctorID string) ([]models.Review, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Review{}
	for _, rv := range s.reviews {
		if rv.DoctorID != doctorID {
			continue
		}
		if u, ok := s.users[rv.PatientID]; ok {
			rv.Patient = &u
		}
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
