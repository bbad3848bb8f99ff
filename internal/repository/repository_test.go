package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medicare-server/internal/calendar"
	"medicare-server/internal/models"
)

// newTestDB migrates a fresh sqlite file with foreign keys enforced, so the
// schema's relations are checked the way MySQL checks them.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "medicare.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		BaseModel: models.BaseModel{ID: id},
		Email:     id + "@medicare.test",
		FirstName: id,
		Role:      role,
	}
	require.NoError(t, u.SetPassword("password123"))
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedDoctor(t *testing.T, db *gorm.DB, id string) *models.Doctor {
	t.Helper()
	seedUser(t, db, id, models.RoleDoctor)
	d := &models.Doctor{
		ID:             id,
		Name:           "Dr. " + id,
		Specialization: "Cardiology",
		Experience:     10,
		Fees:           800,
		Availability:   models.Availability{Days: []string{"Mon", "Wed"}, Slots: []string{"09:00 AM", "10:00 AM"}},
		IsActive:       true,
	}
	require.NoError(t, NewDoctorRepository(db).Create(context.Background(), d))
	return d
}

func newAppointment(patientID, doctorID string, date calendar.Date, slot string) *models.Appointment {
	a := &models.Appointment{
		PatientID: patientID, DoctorID: doctorID, Date: date, TimeSlot: slot,
		Reason: "checkup", Status: models.StatusPending,
	}
	a.SyncSlotKey()
	return a
}

func TestMigrate_UsersWithoutDoctorProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	seedUser(t, db, "p1", models.RolePatient)
	seedUser(t, db, "a1", models.RoleAdmin)
	seedUser(t, db, "d1", models.RoleDoctor)

	got, err := repo.GetByEmail(ctx, "p1@medicare.test")
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, got.Role)
	assert.True(t, got.CheckPassword("password123"))

	dup := &models.User{Email: "p1@medicare.test", Password: "x", Role: models.RolePatient}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)

	patients, err := repo.List(ctx, UserFilter{Role: models.RolePatient})
	require.NoError(t, err)
	assert.Len(t, patients, 1)

	_, err = repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppointments_SQLSlotKeyIsUnique(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "p1", models.RolePatient)
	seedUser(t, db, "p2", models.RolePatient)
	seedDoctor(t, db, "d1")
	repo := NewAppointmentRepository(db)
	d, _ := calendar.Parse("2025-01-08")

	first := newAppointment("p1", "d1", d, "09:00 AM")
	require.NoError(t, repo.Create(ctx, first))

	second := newAppointment("p2", "d1", d, "09:00 AM")
	assert.ErrorIs(t, repo.Create(ctx, second), ErrDuplicate)

	first.Status = models.StatusCancelled
	first.SyncSlotKey()
	require.NoError(t, repo.Transition(ctx, first, models.StatusPending, nil))

	second.ID = ""
	require.NoError(t, repo.Create(ctx, second))

	held, err := repo.List(ctx, AppointmentFilter{
		DoctorID: "d1",
		Date:     &d,
		Statuses: []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed, models.StatusCompleted},
		Preload:  true,
	})
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "p2", held[0].PatientID)
	assert.Equal(t, d, held[0].Date)
	require.NotNil(t, held[0].Doctor)
	assert.Equal(t, "Dr. d1", held[0].Doctor.Name)
}

func TestAppointments_SQLConcurrentSameSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedDoctor(t, db, "d1")
	repo := NewAppointmentRepository(db)
	d, _ := calendar.Parse("2025-01-08")

	const attempts = 8
	for i := 0; i < attempts; i++ {
		seedUser(t, db, fmt.Sprintf("p%d", i), models.RolePatient)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, newAppointment(fmt.Sprintf("p%d", i), "d1", d, "10:00 AM"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, ErrDuplicate) {
				duplicates++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
}

func TestAppointments_SQLTransitionIsConditional(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "p1", models.RolePatient)
	seedDoctor(t, db, "d1")
	repo := NewAppointmentRepository(db)
	d, _ := calendar.Parse("2025-01-08")

	a := newAppointment("p1", "d1", d, "09:00 AM")
	require.NoError(t, repo.Create(ctx, a))

	a.Status = models.StatusConfirmed
	require.NoError(t, repo.Transition(ctx, a, models.StatusPending, nil))

	a.Status = models.StatusRejected
	a.RejectionReason = "unavailable"
	assert.ErrorIs(t, repo.Transition(ctx, a, models.StatusPending, nil), ErrStale)

	issued := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	a.Status = models.StatusCompleted
	a.RejectionReason = ""
	a.Prescription = &models.AppointmentPrescription{
		Medications: []models.Medication{{Name: "Aspirin", Dosage: "75mg"}},
		Diagnosis:   "angina",
		IssuedAt:    issued,
	}
	rx := &models.Prescription{
		PatientID: "p1", DoctorID: "d1", AppointmentID: &a.ID,
		Medicines: a.Prescription.Medications, Diagnosis: "angina", Date: issued, IsActive: true,
	}
	require.NoError(t, repo.Transition(ctx, a, models.StatusConfirmed, rx))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Prescription)
	assert.Equal(t, "Aspirin", got.Prescription.Medications[0].Name)

	records := NewRecordRepository(db)
	rxs, err := records.ListPrescriptions(ctx, PrescriptionFilter{PatientID: "p1"})
	require.NoError(t, err)
	require.Len(t, rxs, 1)
	assert.Equal(t, "angina", rxs[0].Diagnosis)
	n, err := records.CountActivePrescriptions(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.UpdateNotes(ctx, a.ID, "follow up in a week"))
	require.NoError(t, repo.UpdateNotes(ctx, a.ID, "follow up in a week"))
	assert.ErrorIs(t, repo.UpdateNotes(ctx, "ghost", "x"), ErrNotFound)
}

func TestBeds_SQLReserveAdmitDischarge(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewBedRepository(db)

	bed := &models.Bed{BedNumber: "GW-101", WardType: models.WardGeneral, PricePerDay: 1500, Floor: 1}
	require.NoError(t, repo.CreateBed(ctx, bed))
	assert.ErrorIs(t, repo.CreateBed(ctx, &models.Bed{BedNumber: "GW-101", WardType: models.WardGeneral}), ErrDuplicate)

	admission := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	booking := &models.BedBooking{
		BedID: bed.ID, PatientID: "p1", WardType: bed.WardType, BedNumber: bed.BedNumber,
		AdmissionDate: admission, ExpectedDischarge: admission.AddDate(0, 0, 3),
		Reason: "observation", Status: models.BookingConfirmed,
		TotalAmount: models.TotalAmount(admission, admission.AddDate(0, 0, 3), bed.PricePerDay),
	}
	booking.SyncActiveKey()
	require.NoError(t, repo.Reserve(ctx, booking))

	got, err := repo.GetBed(ctx, bed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BedReserved, got.Status)
	require.NotNil(t, got.Booking)
	assert.Equal(t, booking.ID, got.Booking.BookingID)

	active, err := repo.FindActiveBooking(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4500, active.TotalAmount)

	patient := "p1"
	booking.Status = models.BookingAdmitted
	booking.SyncActiveKey()
	require.NoError(t, repo.MoveBooking(ctx, booking, models.BookingConfirmed, BedChange{
		From: models.BedReserved, To: models.BedOccupied, CurrentPatientID: &patient, Booking: booking.Snapshot(),
	}))

	// A cancel racing the admission finds the booking no longer Confirmed.
	stale := *booking
	stale.Status = models.BookingCancelled
	stale.SyncActiveKey()
	err = repo.MoveBooking(ctx, &stale, models.BookingConfirmed, BedChange{From: models.BedReserved, To: models.BedAvailable})
	assert.ErrorIs(t, err, ErrStale)

	got, _ = repo.GetBed(ctx, bed.ID)
	assert.Equal(t, models.BedOccupied, got.Status)
	require.NotNil(t, got.CurrentPatientID)
	assert.Equal(t, "p1", *got.CurrentPatientID)

	discharged := admission.AddDate(0, 0, 2)
	booking.Status = models.BookingDischarged
	booking.ActualDischarge = &discharged
	booking.SyncActiveKey()
	require.NoError(t, repo.MoveBooking(ctx, booking, models.BookingAdmitted, BedChange{
		From: models.BedOccupied, To: models.BedAvailable,
	}))

	got, _ = repo.GetBed(ctx, bed.ID)
	assert.Equal(t, models.BedAvailable, got.Status)
	assert.Nil(t, got.Booking)
	assert.Nil(t, got.CurrentPatientID)

	_, err = repo.FindActiveBooking(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := repo.ListBookings(ctx, BookingFilter{PatientID: "p1"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.BookingDischarged, history[0].Status)
	require.NotNil(t, history[0].Bed)
	assert.Equal(t, "GW-101", history[0].Bed.BedNumber)
}

func TestBeds_SQLOneActiveBookingPerPatient(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewBedRepository(db)

	a := &models.Bed{BedNumber: "ICU-1", WardType: models.WardICU, PricePerDay: 5000}
	b := &models.Bed{BedNumber: "ICU-2", WardType: models.WardICU, PricePerDay: 5000}
	require.NoError(t, repo.CreateBed(ctx, a))
	require.NoError(t, repo.CreateBed(ctx, b))

	admission := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	book := func(bed *models.Bed) *models.BedBooking {
		bk := &models.BedBooking{
			BedID: bed.ID, PatientID: "p1", WardType: bed.WardType, BedNumber: bed.BedNumber,
			AdmissionDate: admission, ExpectedDischarge: admission.AddDate(0, 0, 1),
			Reason: "surgery", Status: models.BookingConfirmed, TotalAmount: 5000,
		}
		bk.SyncActiveKey()
		return bk
	}

	require.NoError(t, repo.Reserve(ctx, book(a)))
	assert.ErrorIs(t, repo.Reserve(ctx, book(b)), ErrDuplicate)

	// The rolled back reservation left the second bed untouched.
	got, _ := repo.GetBed(ctx, b.ID)
	assert.Equal(t, models.BedAvailable, got.Status)

	// A bed that is no longer Available cannot be reserved by anyone.
	other := book(a)
	other.PatientID = "p2"
	other.SyncActiveKey()
	assert.ErrorIs(t, repo.Reserve(ctx, other), ErrStale)

	require.NoError(t, repo.SetBedStatus(ctx, b.ID, models.BedAvailable, models.BedMaintenance))
	assert.ErrorIs(t, repo.SetBedStatus(ctx, b.ID, models.BedAvailable, models.BedMaintenance), ErrStale)

	available, err := repo.ListAvailable(ctx, models.WardICU)
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestBeds_SQLWardCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewBedRepository(db)

	for _, b := range []*models.Bed{
		{BedNumber: "1", WardType: models.WardGeneral, PricePerDay: 1000},
		{BedNumber: "2", WardType: models.WardGeneral, PricePerDay: 1500, Status: models.BedOccupied},
		{BedNumber: "1", WardType: models.WardICU, PricePerDay: 5000, Status: models.BedMaintenance},
	} {
		require.NoError(t, repo.CreateBed(ctx, b))
	}

	counts, err := repo.WardCounts(ctx)
	require.NoError(t, err)
	byWard := map[models.WardType]models.WardCounts{}
	for _, c := range counts {
		byWard[c.WardType] = c
	}

	general := byWard[models.WardGeneral].Summary()
	assert.Equal(t, 2, general.Total)
	assert.Equal(t, 1, general.Available)
	assert.Equal(t, 1, general.Occupied)
	assert.Equal(t, 1000, general.MinPrice)
	assert.Equal(t, 1500, general.MaxPrice)
	assert.Equal(t, 1250, general.AvgPrice)
	assert.Equal(t, 50.0, general.OccupancyRate)

	icu := byWard[models.WardICU].Summary()
	assert.Equal(t, 1, icu.Total)
	assert.Equal(t, 1, icu.Maintenance)
}

func TestReviews_SQLRecomputeRating(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "p1", models.RolePatient)
	seedDoctor(t, db, "d1")
	repo := NewReviewRepository(db)

	var doctor *models.Doctor
	for i, rating := range []int{4, 5, 3} {
		var err error
		doctor, err = repo.Create(ctx, &models.Review{
			DoctorID: "d1", PatientID: "p1", AppointmentID: fmt.Sprintf("appt-%d", i), Rating: rating, Comment: "ok",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 4.0, doctor.Rating)
	assert.Equal(t, 3, doctor.NumReviews)

	_, err := repo.Create(ctx, &models.Review{DoctorID: "d1", PatientID: "p1", AppointmentID: "appt-0", Rating: 1, Comment: "again"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.Create(ctx, &models.Review{DoctorID: "ghost", PatientID: "p1", AppointmentID: "appt-9", Rating: 1, Comment: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.ExistsForAppointment(ctx, "appt-1")
	require.NoError(t, err)
	assert.True(t, exists)

	reviews, err := repo.ListByDoctor(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	require.NotNil(t, reviews[0].Patient)
}

func TestReviews_SQLConcurrentReviewsKeepCountInStep(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "p1", models.RolePatient)
	seedDoctor(t, db, "d1")
	repo := NewReviewRepository(db)

	const reviews = 10
	var wg sync.WaitGroup
	for i := 0; i < reviews; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, &models.Review{
				DoctorID: "d1", PatientID: "p1", AppointmentID: fmt.Sprintf("appt-%d", i), Rating: 1 + i%5, Comment: "ok",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doctor, err := NewDoctorRepository(db).Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, reviews, doctor.NumReviews)
	assert.Equal(t, 3.0, doctor.Rating)
}

func TestDoctors_SQLDirectory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewDoctorRepository(db)
	seedDoctor(t, db, "d1")
	d2 := seedDoctor(t, db, "d2")

	d2.About = "Paediatric cardiology"
	d2.Fees = 500
	d2.Availability = models.Availability{Days: []string{"Sat"}, Slots: []string{"11:00 AM"}}
	require.NoError(t, repo.UpdateProfile(ctx, d2))

	got, err := repo.Get(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sat"}, got.Availability.Days)
	assert.Equal(t, 500, got.Fees)

	cheap, err := repo.List(ctx, DoctorFilter{MaxFees: 600})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "d2", cheap[0].ID)

	byName, err := repo.List(ctx, DoctorFilter{Search: "DR. D1"})
	require.NoError(t, err)
	require.Len(t, byName, 1)

	specs, err := repo.Specializations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiology"}, specs)
}

func TestRecords_SQLCreateAndFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "p1", models.RolePatient)
	seedDoctor(t, db, "d1")
	repo := NewRecordRepository(db)

	day := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	for i, vt := range []models.VisitType{models.VisitConsultation, models.VisitFollowUp} {
		require.NoError(t, repo.CreateRecord(ctx, &models.MedicalRecord{
			PatientID: "p1", DoctorID: "d1", VisitType: vt, Diagnosis: "flu",
			Symptoms: []string{"fever"}, RecordDate: day.AddDate(0, 0, i), Status: models.RecordCompleted,
		}))
	}

	all, err := repo.ListRecords(ctx, RecordFilter{PatientID: "p1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.VisitFollowUp, all[0].VisitType)
	assert.Equal(t, []string{"fever"}, all[0].Symptoms)
	require.NotNil(t, all[0].Doctor)

	followUps, err := repo.ListRecords(ctx, RecordFilter{PatientID: "p1", VisitType: models.VisitFollowUp})
	require.NoError(t, err)
	assert.Len(t, followUps, 1)

	_, err = repo.GetRecord(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers_SQLRefreshTokens(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1", models.RolePatient)
	repo := NewUserRepository(db)

	expires := time.Now().Add(time.Hour)
	require.NoError(t, repo.SaveRefreshToken(ctx, &models.RefreshToken{UserID: "u1", TokenID: "t1", ExpiresAt: expires}))
	require.NoError(t, repo.SaveRefreshToken(ctx, &models.RefreshToken{UserID: "u1", TokenID: "t2", ExpiresAt: expires}))

	require.NoError(t, repo.RevokeRefreshToken(ctx, "t1"))
	assert.ErrorIs(t, repo.RevokeRefreshToken(ctx, "t1"), ErrStale)

	require.NoError(t, repo.RevokeAllRefreshTokens(ctx, "u1"))
	tok, err := repo.GetRefreshToken(ctx, "t2")
	require.NoError(t, err)
	assert.True(t, tok.IsRevoked)

	require.NoError(t, repo.Delete(ctx, "u1"))
	assert.ErrorIs(t, repo.Delete(ctx, "u1"), ErrNotFound)
}
