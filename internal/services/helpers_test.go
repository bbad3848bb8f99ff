package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/cache"
	"medicare-server/internal/config"
	"medicare-server/internal/models"
	"medicare-server/internal/repository/memory"
)

// Monday 6 January 2025, 08:00 local time.
var testNow = time.Date(2025, 1, 6, 8, 0, 0, 0, time.Local)

func testClock() time.Time { return testNow }

type fixture struct {
	store *memory.Store
	cache *cache.Memory

	accounts     *AccountService
	doctors      *DoctorService
	appointments *AppointmentService
	beds         *BedService
	reviews      *ReviewService
	records      *RecordService

	doctor  Actor
	patient Actor
	other   Actor
	admin   Actor
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:               "test",
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	store := memory.NewStore()
	store.SetClock(testClock)
	c := cache.NewMemory()

	f := &fixture{
		store:   store,
		cache:   c,
		doctor:  Actor{ID: "doc-1", Role: models.RoleDoctor},
		patient: Actor{ID: "pat-1", Role: models.RolePatient},
		other:   Actor{ID: "pat-2", Role: models.RolePatient},
		admin:   Actor{ID: "adm-1", Role: models.RoleAdmin},
	}
	f.accounts = NewAccountService(store.Users(), testConfig(), log)
	f.doctors = NewDoctorService(store.Doctors(), store.Users(), c, time.Minute, log)
	f.appointments = NewAppointmentService(store.Appointments(), store.Doctors(), log).WithClock(testClock)
	f.beds = NewBedService(store.Beds(), c, time.Minute, log).WithClock(testClock)
	f.reviews = NewReviewService(store.Reviews(), store.Appointments(), f.doctors, log)
	f.records = NewRecordService(store.Records(), store.Users(), store.Appointments(), log)

	users := []models.User{
		{BaseModel: models.BaseModel{ID: f.doctor.ID}, FirstName: "Asha", LastName: "Rao", Email: "asha@medicare.test", Role: models.RoleDoctor},
		{BaseModel: models.BaseModel{ID: f.patient.ID}, FirstName: "Ravi", LastName: "Kumar", Email: "ravi@medicare.test", Role: models.RolePatient},
		{BaseModel: models.BaseModel{ID: f.other.ID}, FirstName: "Meera", LastName: "Iyer", Email: "meera@medicare.test", Role: models.RolePatient},
		{BaseModel: models.BaseModel{ID: f.admin.ID}, FirstName: "Admin", Email: "admin@medicare.test", Role: models.RoleAdmin},
	}
	for i := range users {
		require.NoError(t, users[i].SetPassword("password123"))
		require.NoError(t, store.Users().Create(ctx, &users[i]))
	}

	require.NoError(t, store.Doctors().Create(ctx, &models.Doctor{
		ID:             f.doctor.ID,
		Name:           "Asha Rao",
		Specialization: "Cardiology",
		Experience:     12,
		Fees:           800,
		Availability: models.Availability{
			Days:  []string{"Mon", "Wed", "Fri"},
			Slots: []string{"09:00 AM", "10:00 AM", "11:00 AM"},
		},
		IsActive: true,
	}))
	return f
}

// book creates a pending appointment for actor on the doctor's calendar.
func (f *fixture) book(t *testing.T, actor Actor, date, slot string) *models.Appointment {
	t.Helper()
	appt, err := f.appointments.Create(context.Background(), actor, CreateAppointmentInput{
		DoctorID: f.doctor.ID,
		Date:     date,
		TimeSlot: slot,
		Reason:   "chest pain",
	})
	require.NoError(t, err)
	return appt
}

// complete books, confirms and completes an appointment.
func (f *fixture) complete(t *testing.T, actor Actor, date, slot string) *models.Appointment {
	t.Helper()
	ctx := context.Background()
	appt := f.book(t, actor, date, slot)
	_, err := f.appointments.Decide(ctx, f.doctor, appt.ID, models.StatusConfirmed, "")
	require.NoError(t, err)
	done, err := f.appointments.Complete(ctx, f.doctor, appt.ID, PrescriptionInput{
		Medications: []models.Medication{{Name: "Aspirin", Dosage: "75mg"}},
		Diagnosis:   "angina",
	})
	require.NoError(t, err)
	return done
}

func (f *fixture) addBed(t *testing.T, number string, ward models.WardType, price int) *models.Bed {
	t.Helper()
	bed, err := f.beds.CreateBed(context.Background(), CreateBedInput{
		BedNumber:   number,
		WardType:    string(ward),
		PricePerDay: price,
	})
	require.NoError(t, err)
	return bed
}

// requireAppError asserts err is an *apperrors.Error of the given kind and code.
func requireAppError(t *testing.T, err error, kind apperrors.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperrors.KindOf(err), "kind of %v", err)
	require.Equal(t, code, apperrors.CodeOf(err), "code of %v", err)
}
