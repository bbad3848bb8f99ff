package repository

import (
	"medicare-server/internal/calendar"
	"medicare-server/internal/models"
)

// AppointmentSort orders appointment listings.
type AppointmentSort string

const (
	// SortByDate is date ascending then slot ascending.
	SortByDate AppointmentSort = "date"
	// SortByStatus is status then date.
	SortByStatus AppointmentSort = "status"
	// SortNewest is creation time descending.
	SortNewest AppointmentSort = "newest"
	// SortDateDesc is date descending, the patient history view.
	SortDateDesc AppointmentSort = "date_desc"
)

// AppointmentFilter selects appointments. Zero fields do not filter.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Statuses  []models.AppointmentStatus
	Date      *calendar.Date
	TimeSlot  string
	Sort      AppointmentSort
	Preload   bool
}

// DoctorFilter selects active doctors for the directory.
type DoctorFilter struct {
	Specialization string
	Search         string
	MinExperience  int
	MaxFees        int
}

// BookingFilter selects bed bookings. Zero fields do not filter.
type BookingFilter struct {
	PatientID string
	BedID     string
	Status    models.BedBookingStatus
}

// BedChange is the bed side of a booking transition: the bed must currently
// be in From and moves to To with the given patient and snapshot.
type BedChange struct {
	From             models.BedStatus
	To               models.BedStatus
	CurrentPatientID *string
	Booking          *models.BedSnapshot
}

// RecordFilter selects medical records of one patient.
type RecordFilter struct {
	PatientID string
	Status    models.RecordStatus
	VisitType models.VisitType
}

// PrescriptionFilter selects prescriptions of one patient.
type PrescriptionFilter struct {
	PatientID string
	IsActive  *bool
}

// UserFilter selects users for administration.
type UserFilter struct {
	Role models.Role
}
