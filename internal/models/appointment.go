package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"medicare-server/internal/calendar"
	"medicare-server/internal/statemachine"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusRejected  AppointmentStatus = "Rejected"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// AppointmentStatuses lists every status in dashboard order.
var AppointmentStatuses = []AppointmentStatus{
	StatusPending, StatusConfirmed, StatusCompleted, StatusRejected, StatusCancelled,
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	for _, x := range AppointmentStatuses {
		if x == s {
			return true
		}
	}
	return false
}

// HoldsSlot reports whether an appointment in status s occupies its slot.
// Rejected and cancelled appointments give the slot back.
func (s AppointmentStatus) HoldsSlot() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

// AppointmentMachine is the appointment lifecycle. Doctors decide and complete,
// patients cancel anything not yet completed.
var AppointmentMachine = statemachine.New[AppointmentStatus, Role]("appointment",
	map[AppointmentStatus]string{
		StatusConfirmed: "confirm",
		StatusRejected:  "reject",
		StatusCompleted: "complete",
		StatusCancelled: "cancel",
	},
	statemachine.Transition[AppointmentStatus, Role]{From: StatusPending, To: StatusConfirmed, Actors: []Role{RoleDoctor}},
	statemachine.Transition[AppointmentStatus, Role]{From: StatusPending, To: StatusRejected, Actors: []Role{RoleDoctor}},
	statemachine.Transition[AppointmentStatus, Role]{From: StatusConfirmed, To: StatusCompleted, Actors: []Role{RoleDoctor}},
	statemachine.Transition[AppointmentStatus, Role]{From: StatusPending, To: StatusCancelled, Actors: []Role{RolePatient}},
	statemachine.Transition[AppointmentStatus, Role]{From: StatusConfirmed, To: StatusCancelled, Actors: []Role{RolePatient}},
)

// Medication is one line of a prescription.
type Medication struct {
	Name         string `json:"name"`
	GenericName  string `json:"genericName,omitempty"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// AppointmentPrescription is attached when a doctor completes an appointment.
type AppointmentPrescription struct {
	Medications []Medication `json:"medications"`
	Diagnosis   string       `json:"diagnosis"`
	Notes       string       `json:"notes,omitempty"`
	IssuedAt    time.Time    `json:"issuedAt"`
}

// Appointment represents a consultation booked by a patient with a doctor
// for one slot on one calendar day.
type Appointment struct {
	BaseModel
	PatientID       string                   `gorm:"size:36;not null;index:idx_patient_date" json:"patientId"`
	DoctorID        string                   `gorm:"size:36;not null;index:idx_doctor_date" json:"doctorId"`
	Date            calendar.Date            `gorm:"type:date;not null;index:idx_patient_date;index:idx_doctor_date" json:"date"`
	TimeSlot        string                   `gorm:"size:20;not null" json:"timeSlot"`
	Reason          string                   `gorm:"size:500;not null" json:"reason"`
	Status          AppointmentStatus        `gorm:"size:20;not null;default:'Pending';index" json:"status"`
	RejectionReason string                   `gorm:"size:500" json:"rejectionReason,omitempty"`
	Prescription    *AppointmentPrescription `gorm:"type:json;serializer:json" json:"prescription,omitempty"`
	Notes           string                   `gorm:"type:text" json:"notes"`

	// SlotKey is set while the appointment holds its slot and NULL otherwise.
	// The unique index makes the database the arbiter of concurrent bookings.
	SlotKey *string `gorm:"size:120;uniqueIndex" json:"-"`

	// Relations
	Patient *User   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// SlotKeyFor identifies a bookable (doctor, day, slot) triple.
func SlotKeyFor(doctorID string, date calendar.Date, slot string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date, slot)
}

// SyncSlotKey sets SlotKey from the current status.
func (a *Appointment) SyncSlotKey() {
	if a.Status.HoldsSlot() {
		key := SlotKeyFor(a.DoctorID, a.Date, a.TimeSlot)
		a.SlotKey = &key
		return
	}
	a.SlotKey = nil
}

// SlotMinutes converts a label such as "09:30 AM" to minutes after midnight.
// Labels that do not parse sort after all others.
func SlotMinutes(label string) int {
	const unknown = 24 * 60
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(label)))
	if len(fields) == 0 {
		return unknown
	}
	hm := strings.SplitN(fields[0], ":", 2)
	h, err := strconv.Atoi(hm[0])
	if err != nil {
		return unknown
	}
	m := 0
	if len(hm) == 2 {
		if m, err = strconv.Atoi(hm[1]); err != nil {
			return unknown
		}
	}
	if len(fields) > 1 {
		switch fields[1] {
		case "AM":
			if h == 12 {
				h = 0
			}
		case "PM":
			if h != 12 {
				h += 12
			}
		default:
			return unknown
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return unknown
	}
	return h*60 + m
}

// StatusSummary counts appointments per status.
type StatusSummary struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// Add counts one appointment in status s.
func (s *StatusSummary) Add(status AppointmentStatus) {
	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusConfirmed:
		s.Confirmed++
	case StatusCompleted:
		s.Completed++
	case StatusRejected:
		s.Rejected++
	case StatusCancelled:
		s.Cancelled++
	}
}

// Summarize counts appointments by status.
func Summarize(appointments []Appointment) StatusSummary {
	var s StatusSummary
	for i := range appointments {
		s.Add(appointments[i].Status)
	}
	return s
}
