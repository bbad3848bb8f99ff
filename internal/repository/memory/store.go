// Package memory is an in-process implementation of the repositories. It
// enforces the same unique keys and conditional updates as the SQL schema and
// backs the tests and the database-less serve mode.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"medicare-server/internal/models"
)

// Store holds every table behind one mutex.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	users         map[string]models.User
	tokens        map[string]models.RefreshToken
	doctors       map[string]models.Doctor
	appointments  map[string]models.Appointment
	slotKeys      map[string]string
	beds          map[string]models.Bed
	bedNumbers    map[string]string
	bookings      map[string]models.BedBooking
	activeByUser  map[string]string
	reviews       map[string]models.Review
	reviewByAppt  map[string]string
	records       map[string]models.MedicalRecord
	prescriptions map[string]models.Prescription
}

func NewStore() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[string]models.User),
		tokens:        make(map[string]models.RefreshToken),
		doctors:       make(map[string]models.Doctor),
		appointments:  make(map[string]models.Appointment),
		slotKeys:      make(map[string]string),
		beds:          make(map[string]models.Bed),
		bedNumbers:    make(map[string]string),
		bookings:      make(map[string]models.BedBooking),
		activeByUser:  make(map[string]string),
		reviews:       make(map[string]models.Review),
		reviewByAppt:  make(map[string]string),
		records:       make(map[string]models.MedicalRecord),
		prescriptions: make(map[string]models.Prescription),
	}
}

// SetClock replaces the clock used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) Users() *UserRepository               { return &UserRepository{s} }
func (s *Store) Doctors() *DoctorRepository           { return &DoctorRepository{s} }
func (s *Store) Appointments() *AppointmentRepository { return &AppointmentRepository{s} }
func (s *Store) Beds() *BedRepository                 { return &BedRepository{s} }
func (s *Store) Reviews() *ReviewRepository           { return &ReviewRepository{s} }
func (s *Store) Records() *RecordRepository           { return &RecordRepository{s} }

// stamp fills id and timestamps the way BaseModel hooks do in gorm.
func (s *Store) stamp(b *models.BaseModel) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
