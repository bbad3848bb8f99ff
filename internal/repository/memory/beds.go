package memory

import (
	"context"
	"fmt"
	"sort"

	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

type BedRepository struct{ s *Store }

func bedNumberKey(ward models.WardType, number string) string {
	return string(ward) + "|" + number
}

func (r *BedRepository) GetBed(_ context.Context, id string) (*models.Bed, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.beds[id]
	if !ok {
		return nil, fmt.Errorf("get bed %s: %w", id, repository.ErrNotFound)
	}
	return &b, nil
}

func (r *BedRepository) CreateBed(_ context.Context, b *models.Bed) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bedNumberKey(b.WardType, b.BedNumber)
	if _, taken := s.bedNumbers[key]; taken {
		return fmt.Errorf("create bed: %w", repository.ErrDuplicate)
	}
	if b.Status == "" {
		b.Status = models.BedAvailable
	}
	s.stamp(&b.BaseModel)
	s.beds[b.ID] = *b
	s.bedNumbers[key] = b.ID
	return nil
}

func (r *BedRepository) ListAvailable(_ context.Context, ward models.WardType) ([]models.Bed, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Bed{}
	for _, b := range s.beds {
		if b.WardType == ward && b.Status == models.BedAvailable {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].BedNumber < out[j].BedNumber
	})
	return out, nil
}

func (r *BedRepository) WardCounts(_ context.Context) ([]models.WardCounts, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	byWard := make(map[models.WardType]*models.WardCounts)
	sums := make(map[models.WardType]int)
	var order []models.WardType
	for _, b := range s.beds {
		c, ok := byWard[b.WardType]
		if !ok {
			c = &models.WardCounts{WardType: b.WardType, MinPrice: b.PricePerDay, MaxPrice: b.PricePerDay}
			byWard[b.WardType] = c
			order = append(order, b.WardType)
		}
		c.Total++
		switch b.Status {
		case models.BedAvailable:
			c.Available++
		case models.BedOccupied:
			c.Occupied++
		case models.BedReserved:
			c.Reserved++
		case models.BedMaintenance:
			c.Maintenance++
		}
		if b.PricePerDay < c.MinPrice {
			c.MinPrice = b.PricePerDay
		}
		if b.PricePerDay > c.MaxPrice {
			c.MaxPrice = b.PricePerDay
		}
		sums[b.WardType] += b.PricePerDay
	}

	out := make([]models.WardCounts, 0, len(order))
	for _, w := range order {
		c := byWard[w]
		c.AvgPrice = float64(sums[w]) / float64(c.Total)
		out = append(out, *c)
	}
	return out, nil
}

func (r *BedRepository) SetBedStatus(_ context.Context, id string, from, to models.BedStatus) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.beds[id]
	if !ok || b.Status != from {
		return fmt.Errorf("set bed status %s: %w", id, repository.ErrStale)
	}
	b.Status = to
	b.UpdatedAt = s.now()
	s.beds[id] = b
	return nil
}

func (r *BedRepository) GetBooking(_ context.Context, id string) (*models.BedBooking, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("get bed booking %s: %w", id, repository.ErrNotFound)
	}
	s.preloadBooking(&b)
	return &b, nil
}

func (s *Store) preloadBooking(b *models.BedBooking) {
	if bed, ok := s.beds[b.BedID]; ok {
		b.Bed = &bed
	}
}

func (r *BedRepository) FindActiveBooking(_ context.Context, patientID string) (*models.BedBooking, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.activeByUser[patientID]
	if !ok {
		return nil, fmt.Errorf("find active booking: %w", repository.ErrNotFound)
	}
	b := s.bookings[id]
	return &b, nil
}

func (r *BedRepository) ListBookings(_ context.Context, f repository.BookingFilter) ([]models.BedBooking, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.BedBooking{}
	for _, b := range s.bookings {
		if f.PatientID != "" && b.PatientID != f.PatientID {
			continue
		}
		if f.BedID != "" && b.BedID != f.BedID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		s.preloadBooking(&b)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *BedRepository) Reserve(_ context.Context, booking *models.BedBooking) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.ActivePatientKey != nil {
		if _, taken := s.activeByUser[*booking.ActivePatientKey]; taken {
			return fmt.Errorf("reserve bed %s: %w", booking.BedID, repository.ErrDuplicate)
		}
	}
	bed, ok := s.beds[booking.BedID]
	if !ok || bed.Status != models.BedAvailable {
		return fmt.Errorf("reserve bed %s: %w", booking.BedID, repository.ErrStale)
	}

	s.stamp(&booking.BaseModel)
	stored := *booking
	stored.Bed = nil
	stored.ActivePatientKey = cloneString(booking.ActivePatientKey)
	s.bookings[booking.ID] = stored
	if stored.ActivePatientKey != nil {
		s.activeByUser[*stored.ActivePatientKey] = booking.ID
	}

	bed.Status = models.BedReserved
	bed.CurrentPatientID = nil
	bed.Booking = booking.Snapshot()
	bed.UpdatedAt = s.now()
	s.beds[bed.ID] = bed
	return nil
}

func (r *BedRepository) MoveBooking(_ context.Context, booking *models.BedBooking, from models.BedBookingStatus, change repository.BedChange) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.bookings[booking.ID]
	if !ok || cur.Status != from {
		return fmt.Errorf("move bed booking %s: %w", booking.ID, repository.ErrStale)
	}
	bed, ok := s.beds[cur.BedID]
	if !ok || bed.Status != change.From {
		return fmt.Errorf("move bed booking %s: %w", booking.ID, repository.ErrStale)
	}

	now := s.now()
	if cur.ActivePatientKey != nil {
		delete(s.activeByUser, *cur.ActivePatientKey)
	}
	cur.Status = booking.Status
	cur.ActualDischarge = booking.ActualDischarge
	cur.ActivePatientKey = cloneString(booking.ActivePatientKey)
	cur.UpdatedAt = now
	if cur.ActivePatientKey != nil {
		s.activeByUser[*cur.ActivePatientKey] = cur.ID
	}
	s.bookings[cur.ID] = cur

	bed.Status = change.To
	bed.CurrentPatientID = cloneString(change.CurrentPatientID)
	bed.Booking = change.Booking
	bed.UpdatedAt = now
	s.beds[bed.ID] = bed
	return nil
}
