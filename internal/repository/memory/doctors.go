package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

type DoctorRepository struct{ s *Store }

func (r *DoctorRepository) List(_ context.Context, f repository.DoctorFilter) ([]models.Doctor, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []models.Doctor{}
	for _, d := range s.doctors {
		if !d.IsActive {
			continue
		}
		if f.Specialization != "" && d.Specialization != f.Specialization {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Name), search) &&
			!strings.Contains(strings.ToLower(d.Hospital), search) {
			continue
		}
		if f.MinExperience > 0 && d.Experience < f.MinExperience {
			continue
		}
		if f.MaxFees > 0 && d.Fees > f.MaxFees {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		if out[i].Experience != out[j].Experience {
			return out[i].Experience > out[j].Experience
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *DoctorRepository) Get(_ context.Context, id string) (*models.Doctor, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, fmt.Errorf("get doctor %s: %w", id, repository.ErrNotFound)
	}
	return &d, nil
}

func (r *DoctorRepository) Specializations(_ context.Context) ([]string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, d := range s.doctors {
		if d.IsActive && !seen[d.Specialization] {
			seen[d.Specialization] = true
			out = append(out, d.Specialization)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *DoctorRepository) Create(_ context.Context, d *models.Doctor) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doctors[d.ID]; exists {
		return fmt.Errorf("create doctor: %w", repository.ErrDuplicate)
	}
	now := s.now()
	d.CreatedAt, d.UpdatedAt = now, now
	s.doctors[d.ID] = *d
	return nil
}

func (r *DoctorRepository) UpdateProfile(_ context.Context, d *models.Doctor) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.doctors[d.ID]
	if !ok {
		return fmt.Errorf("update doctor %s: %w", d.ID, repository.ErrNotFound)
	}
	cur.About = d.About
	cur.Fees = d.Fees
	cur.Availability = d.Availability
	cur.UpdatedAt = s.now()
	s.doctors[d.ID] = cur
	return nil
}
