package models

import (
	"math"
	"time"

	"medicare-server/internal/statemachine"
)

// WardType is a bed category used for grouping and pricing.
type WardType string

const (
	WardGeneral   WardType = "General"
	WardICU       WardType = "ICU"
	WardEmergency WardType = "Emergency"
	WardPediatric WardType = "Pediatric"
	WardMaternity WardType = "Maternity"
)

// WardTypes lists every ward in display order.
var WardTypes = []WardType{WardGeneral, WardICU, WardEmergency, WardPediatric, WardMaternity}

func (w WardType) Valid() bool {
	for _, x := range WardTypes {
		if x == w {
			return true
		}
	}
	return false
}

// BedStatus is the physical state of a bed.
type BedStatus string

const (
	BedAvailable   BedStatus = "Available"
	BedOccupied    BedStatus = "Occupied"
	BedReserved    BedStatus = "Reserved"
	BedMaintenance BedStatus = "Maintenance"
)

// BedBookingStatus is the lifecycle of a reservation.
type BedBookingStatus string

const (
	BookingConfirmed  BedBookingStatus = "Confirmed"
	BookingAdmitted   BedBookingStatus = "Admitted"
	BookingDischarged BedBookingStatus = "Discharged"
	BookingCancelled  BedBookingStatus = "Cancelled"
)

// Active reports whether a booking in status s still counts against the
// patient's single active booking.
func (s BedBookingStatus) Active() bool {
	return s == BookingConfirmed || s == BookingAdmitted
}

// BedMachine governs the bed itself. Patients reserve and release through
// their bookings; admission, discharge and maintenance are admin moves.
var BedMachine = statemachine.New[BedStatus, Role]("bed",
	map[BedStatus]string{
		BedReserved:    "reserve",
		BedOccupied:    "occupy",
		BedAvailable:   "release",
		BedMaintenance: "start maintenance on",
	},
	statemachine.Transition[BedStatus, Role]{From: BedAvailable, To: BedReserved, Actors: []Role{RolePatient}},
	statemachine.Transition[BedStatus, Role]{From: BedReserved, To: BedAvailable, Actors: []Role{RolePatient, RoleAdmin}},
	statemachine.Transition[BedStatus, Role]{From: BedReserved, To: BedOccupied, Actors: []Role{RoleAdmin}},
	statemachine.Transition[BedStatus, Role]{From: BedOccupied, To: BedAvailable, Actors: []Role{RoleAdmin}},
	statemachine.Transition[BedStatus, Role]{From: BedAvailable, To: BedMaintenance, Actors: []Role{RoleAdmin}},
	statemachine.Transition[BedStatus, Role]{From: BedMaintenance, To: BedAvailable, Actors: []Role{RoleAdmin}},
)

// BedBookingMachine governs reservations.
var BedBookingMachine = statemachine.New[BedBookingStatus, Role]("bed booking",
	map[BedBookingStatus]string{
		BookingCancelled:  "cancel",
		BookingAdmitted:   "admit",
		BookingDischarged: "discharge",
	},
	statemachine.Transition[BedBookingStatus, Role]{From: BookingConfirmed, To: BookingCancelled, Actors: []Role{RolePatient, RoleAdmin}},
	statemachine.Transition[BedBookingStatus, Role]{From: BookingConfirmed, To: BookingAdmitted, Actors: []Role{RoleAdmin}},
	statemachine.Transition[BedBookingStatus, Role]{From: BookingAdmitted, To: BookingDischarged, Actors: []Role{RoleAdmin}},
)

// EmergencyContact is who to call about an admitted patient.
type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}

// BedSnapshot is the booking summary embedded on a bed that is not Available.
type BedSnapshot struct {
	BookingID         string            `json:"bookingId"`
	PatientID         string            `json:"patientId"`
	AdmissionDate     time.Time         `json:"admissionDate"`
	ExpectedDischarge time.Time         `json:"expectedDischarge"`
	Reason            string            `json:"reason"`
	EmergencyContact  *EmergencyContact `json:"emergencyContact,omitempty"`
	BookedAt          time.Time         `json:"bookedAt"`
}

// Bed is one physical bed in a ward.
type Bed struct {
	BaseModel
	BedNumber        string       `gorm:"size:20;not null;uniqueIndex:idx_ward_bed" json:"bedNumber"`
	WardType         WardType     `gorm:"size:20;not null;uniqueIndex:idx_ward_bed;index:idx_ward_status" json:"wardType"`
	Status           BedStatus    `gorm:"size:20;not null;default:'Available';index:idx_ward_status" json:"status"`
	Floor            int          `gorm:"not null;default:1" json:"floor"`
	PricePerDay      int          `gorm:"not null;default:1500" json:"pricePerDay"`
	Features         []string     `gorm:"type:json;serializer:json" json:"features"`
	CurrentPatientID *string      `gorm:"size:36" json:"currentPatientId,omitempty"`
	Booking          *BedSnapshot `gorm:"type:json;serializer:json" json:"booking,omitempty"`
}

// BedBooking is a patient's reservation of a bed. Ward type and bed number
// are copied at booking time.
type BedBooking struct {
	BaseModel
	BedID             string            `gorm:"size:36;not null;index" json:"bedId"`
	PatientID         string            `gorm:"size:36;not null;index" json:"patientId"`
	WardType          WardType          `gorm:"size:20;not null" json:"wardType"`
	BedNumber         string            `gorm:"size:20;not null" json:"bedNumber"`
	AdmissionDate     time.Time         `gorm:"not null" json:"admissionDate"`
	ExpectedDischarge time.Time         `gorm:"not null" json:"expectedDischarge"`
	ActualDischarge   *time.Time        `json:"actualDischarge,omitempty"`
	Reason            string            `gorm:"size:500;not null" json:"reason"`
	EmergencyContact  *EmergencyContact `gorm:"type:json;serializer:json" json:"emergencyContact,omitempty"`
	Status            BedBookingStatus  `gorm:"size:20;not null;default:'Confirmed';index" json:"status"`
	TotalAmount       int               `gorm:"not null" json:"totalAmount"`
	Notes             string            `gorm:"type:text" json:"notes,omitempty"`

	// ActivePatientKey is the patient ID while the booking is Confirmed or
	// Admitted and NULL otherwise, so one patient holds one active booking.
	ActivePatientKey *string `gorm:"size:36;uniqueIndex" json:"-"`

	Bed *Bed `gorm:"foreignKey:BedID" json:"bed,omitempty"`
}

// SyncActiveKey sets ActivePatientKey from the current status.
func (b *BedBooking) SyncActiveKey() {
	if b.Status.Active() {
		id := b.PatientID
		b.ActivePatientKey = &id
		return
	}
	b.ActivePatientKey = nil
}

// Snapshot is the summary embedded on the reserved bed.
func (b *BedBooking) Snapshot() *BedSnapshot {
	return &BedSnapshot{
		BookingID:         b.ID,
		PatientID:         b.PatientID,
		AdmissionDate:     b.AdmissionDate,
		ExpectedDischarge: b.ExpectedDischarge,
		Reason:            b.Reason,
		EmergencyContact:  b.EmergencyContact,
		BookedAt:          b.CreatedAt,
	}
}

// StayDays is the number of billable days between admission and discharge,
// any part of a day counting as a whole one.
func StayDays(admission, discharge time.Time) int {
	hours := discharge.Sub(admission).Hours()
	if hours <= 0 {
		return 0
	}
	return int(math.Ceil(hours / 24))
}

// TotalAmount is StayDays times the daily price.
func TotalAmount(admission, discharge time.Time, pricePerDay int) int {
	return StayDays(admission, discharge) * pricePerDay
}

// WardCounts is the raw per-ward aggregate read from storage.
type WardCounts struct {
	WardType    WardType
	Total       int
	Available   int
	Occupied    int
	Reserved    int
	Maintenance int
	MinPrice    int
	MaxPrice    int
	AvgPrice    float64
}

// WardSummary is the dashboard view of one ward.
type WardSummary struct {
	WardType      WardType `json:"wardType"`
	Total         int      `json:"total"`
	Available     int      `json:"available"`
	Occupied      int      `json:"occupied"`
	Reserved      int      `json:"reserved"`
	Maintenance   int      `json:"maintenance"`
	Booked        int      `json:"booked"`
	OccupancyRate float64  `json:"occupancyRate"`
	MinPrice      int      `json:"minPrice"`
	MaxPrice      int      `json:"maxPrice"`
	AvgPrice      int      `json:"avgPrice"`
}

// Summary derives booked, occupancy rate and the rounded average price.
// An empty ward has an occupancy rate of 0.
func (c WardCounts) Summary() WardSummary {
	booked := c.Occupied + c.Reserved
	total := c.Total
	if total < 1 {
		total = 1
	}
	rate := 100 * float64(booked) / float64(total)
	return WardSummary{
		WardType:      c.WardType,
		Total:         c.Total,
		Available:     c.Available,
		Occupied:      c.Occupied,
		Reserved:      c.Reserved,
		Maintenance:   c.Maintenance,
		Booked:        booked,
		OccupancyRate: math.Round(rate*10) / 10,
		MinPrice:      c.MinPrice,
		MaxPrice:      c.MaxPrice,
		AvgPrice:      int(math.Round(c.AvgPrice)),
	}
}

// SummarizeWards returns one summary per known ward type, in WardTypes
// order, including wards with no beds.
func SummarizeWards(counts []WardCounts) []WardSummary {
	byWard := make(map[WardType]WardCounts, len(counts))
	for _, c := range counts {
		byWard[c.WardType] = c
	}
	out := make([]WardSummary, 0, len(WardTypes))
	for _, w := range WardTypes {
		c, ok := byWard[w]
		if !ok {
			c = WardCounts{WardType: w}
		}
		out = append(out, c.Summary())
	}
	return out
}
