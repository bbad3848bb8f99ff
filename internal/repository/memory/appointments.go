package memory

import (
	"context"
	"fmt"
	"sort"

	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

type AppointmentRepository struct{ s *Store }

func (r *AppointmentRepository) Create(_ context.Context, a *models.Appointment) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.SlotKey != nil {
		if _, taken := s.slotKeys[*a.SlotKey]; taken {
			return fmt.Errorf("create appointment: %w", repository.ErrDuplicate)
		}
	}
	s.stamp(&a.BaseModel)
	stored := *a
	stored.Patient, stored.Doctor = nil, nil
	stored.SlotKey = cloneString(a.SlotKey)
	s.appointments[a.ID] = stored
	if a.SlotKey != nil {
		s.slotKeys[*a.SlotKey] = a.ID
	}
	return nil
}

func (r *AppointmentRepository) Get(_ context.Context, id string) (*models.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("get appointment %s: %w", id, repository.ErrNotFound)
	}
	s.preloadAppointment(&a)
	return &a, nil
}

func (s *Store) preloadAppointment(a *models.Appointment) {
	if u, ok := s.users[a.PatientID]; ok {
		a.Patient = &u
	}
	if d, ok := s.doctors[a.DoctorID]; ok {
		a.Doctor = &d
	}
}

func (r *AppointmentRepository) List(_ context.Context, f repository.AppointmentFilter) ([]models.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Appointment{}
	for _, a := range s.appointments {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
			continue
		}
		if f.Date != nil && a.Date != *f.Date {
			continue
		}
		if f.TimeSlot != "" && a.TimeSlot != f.TimeSlot {
			continue
		}
		if f.Preload {
			s.preloadAppointment(&a)
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch f.Sort {
		case repository.SortByStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
			return a.Date.Before(b.Date)
		case repository.SortNewest:
			return a.CreatedAt.After(b.CreatedAt)
		case repository.SortDateDesc:
			if a.Date != b.Date {
				return a.Date.After(b.Date)
			}
			return a.CreatedAt.After(b.CreatedAt)
		default:
			if a.Date != b.Date {
				return a.Date.Before(b.Date)
			}
			return a.TimeSlot < b.TimeSlot
		}
	})
	return out, nil
}

func containsStatus(list []models.AppointmentStatus, s models.AppointmentStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (r *AppointmentRepository) Transition(_ context.Context, a *models.Appointment, from models.AppointmentStatus, rx *models.Prescription) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.appointments[a.ID]
	if !ok || cur.Status != from {
		return fmt.Errorf("transition appointment %s: %w", a.ID, repository.ErrStale)
	}
	if a.SlotKey != nil {
		if owner, taken := s.slotKeys[*a.SlotKey]; taken && owner != a.ID {
			return fmt.Errorf("transition appointment %s: %w", a.ID, repository.ErrDuplicate)
		}
	}

	if cur.SlotKey != nil {
		delete(s.slotKeys, *cur.SlotKey)
	}
	cur.Status = a.Status
	cur.RejectionReason = a.RejectionReason
	cur.Prescription = a.Prescription
	cur.SlotKey = cloneString(a.SlotKey)
	cur.UpdatedAt = s.now()
	if cur.SlotKey != nil {
		s.slotKeys[*cur.SlotKey] = cur.ID
	}
	s.appointments[a.ID] = cur
	a.UpdatedAt = cur.UpdatedAt

	if rx != nil {
		s.stamp(&rx.BaseModel)
		stored := *rx
		stored.Doctor = nil
		s.prescriptions[rx.ID] = stored
	}
	return nil
}

func (r *AppointmentRepository) UpdateNotes(_ context.Context, id, notes string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("update notes: %w", repository.ErrNotFound)
	}
	a.Notes = notes
	a.UpdatedAt = s.now()
	s.appointments[id] = a
	return nil
}
