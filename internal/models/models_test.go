package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/calendar"
)

func TestAppointmentMachine(t *testing.T) {
	m := AppointmentMachine

	assert.True(t, m.CanTransition(StatusPending, StatusConfirmed, RoleDoctor))
	assert.True(t, m.CanTransition(StatusPending, StatusRejected, RoleDoctor))
	assert.True(t, m.CanTransition(StatusConfirmed, StatusCompleted, RoleDoctor))
	assert.True(t, m.CanTransition(StatusPending, StatusCancelled, RolePatient))
	assert.True(t, m.CanTransition(StatusConfirmed, StatusCancelled, RolePatient))

	assert.False(t, m.CanTransition(StatusPending, StatusConfirmed, RolePatient))
	assert.False(t, m.CanTransition(StatusConfirmed, StatusRejected, RoleDoctor))
	assert.False(t, m.CanTransition(StatusPending, StatusCompleted, RoleDoctor))
	assert.False(t, m.CanTransition(StatusCompleted, StatusCancelled, RolePatient))

	for _, s := range []AppointmentStatus{StatusRejected, StatusCompleted, StatusCancelled} {
		assert.True(t, m.Terminal(s), s)
	}

	err := m.Check(StatusPending, StatusCompleted, RoleDoctor)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.EqualError(t, err, "cannot complete appointment, current status is Pending")

	err = m.Check(StatusConfirmed, StatusRejected, RoleDoctor)
	assert.EqualError(t, err, "cannot reject appointment, current status is Confirmed")
}

func TestBedMachines(t *testing.T) {
	assert.True(t, BedMachine.CanTransition(BedAvailable, BedReserved, RolePatient))
	assert.True(t, BedMachine.CanTransition(BedReserved, BedOccupied, RoleAdmin))
	assert.True(t, BedMachine.CanTransition(BedOccupied, BedAvailable, RoleAdmin))
	assert.False(t, BedMachine.CanTransition(BedOccupied, BedReserved, RolePatient))
	assert.False(t, BedMachine.CanTransition(BedMaintenance, BedReserved, RolePatient))

	assert.True(t, BedBookingMachine.CanTransition(BookingConfirmed, BookingCancelled, RolePatient))
	assert.False(t, BedBookingMachine.CanTransition(BookingAdmitted, BookingCancelled, RolePatient))
	assert.True(t, BedBookingMachine.Terminal(BookingDischarged))
	assert.True(t, BedBookingMachine.Terminal(BookingCancelled))
}

func TestSyncSlotKey(t *testing.T) {
	d, _ := calendar.Parse("2025-01-08")
	a := &Appointment{DoctorID: "doc-1", Date: d, TimeSlot: "09:00 AM", Status: StatusPending}

	a.SyncSlotKey()
	require.NotNil(t, a.SlotKey)
	assert.Equal(t, "doc-1|2025-01-08|09:00 AM", *a.SlotKey)

	a.Status = StatusCancelled
	a.SyncSlotKey()
	assert.Nil(t, a.SlotKey)

	a.Status = StatusRejected
	a.SyncSlotKey()
	assert.Nil(t, a.SlotKey)
}

func TestSlotMinutes(t *testing.T) {
	assert.Equal(t, 9*60, SlotMinutes("09:00 AM"))
	assert.Equal(t, 13*60+30, SlotMinutes("01:30 PM"))
	assert.Equal(t, 0, SlotMinutes("12:00 AM"))
	assert.Equal(t, 12*60, SlotMinutes("12:00 PM"))
	assert.Equal(t, 14*60, SlotMinutes("14:00"))
	assert.Equal(t, 24*60, SlotMinutes("lunch"))
	assert.Less(t, SlotMinutes("11:30 AM"), SlotMinutes("01:00 PM"))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Appointment{
		{Status: StatusPending}, {Status: StatusPending}, {Status: StatusCancelled}, {Status: StatusCompleted},
	})
	assert.Equal(t, StatusSummary{Pending: 2, Completed: 1, Cancelled: 1, Total: 4}, s)
}

func TestTotalAmount(t *testing.T) {
	admission := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	discharge := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 4500, TotalAmount(admission, discharge, 1500))

	// A partial day is billed as a whole one.
	assert.Equal(t, 4, StayDays(admission, discharge.Add(2*time.Hour)))
	assert.Equal(t, 0, StayDays(discharge, admission))
}

func TestWardSummary(t *testing.T) {
	empty := WardCounts{WardType: WardICU}.Summary()
	assert.Equal(t, 0.0, empty.OccupancyRate)
	assert.Equal(t, 0, empty.Booked)

	s := WardCounts{
		WardType: WardGeneral, Total: 4, Available: 1, Occupied: 1, Reserved: 1, Maintenance: 1,
		MinPrice: 1000, MaxPrice: 2000, AvgPrice: 1500.5,
	}.Summary()
	assert.Equal(t, 2, s.Booked)
	assert.Equal(t, 50.0, s.OccupancyRate)
	assert.Equal(t, 1501, s.AvgPrice)

	all := SummarizeWards([]WardCounts{{WardType: WardICU, Total: 2, Reserved: 1}})
	require.Len(t, all, len(WardTypes))
	assert.Equal(t, WardGeneral, all[0].WardType)
	assert.Equal(t, 0, all[0].Total)
	assert.Equal(t, 50.0, all[1].OccupancyRate)
}

func TestComputeRating(t *testing.T) {
	assert.Equal(t, 4.0, ComputeRating([]int{4, 5, 3}))
	assert.Equal(t, 0.0, ComputeRating(nil))
	assert.Equal(t, 4.7, ComputeRating([]int{5, 5, 4}))
}

func TestAvailability(t *testing.T) {
	a := Availability{Days: []string{"Mon", "Wed", "Fri"}, Slots: []string{"09:00 AM", "09:30 AM"}}
	wed, _ := calendar.Parse("2025-01-08")
	tue, _ := calendar.Parse("2025-01-07")

	assert.True(t, a.WorksOn(wed))
	assert.False(t, a.WorksOn(tue))
	assert.True(t, a.HasSlot("09:30 AM"))
	assert.False(t, a.HasSlot("10:00 AM"))
}

func TestUserPassword(t *testing.T) {
	u := &User{FirstName: "Asha", LastName: "Rao"}
	require.NoError(t, u.SetPassword("s3cret!"))
	assert.True(t, u.CheckPassword("s3cret!"))
	assert.False(t, u.CheckPassword("wrong"))
	assert.Equal(t, "Asha Rao", u.FullName())
	assert.Empty(t, u.Sanitize().Email)
}
