package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/cache"
	"medicare-server/internal/calendar"
	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

const doctorListKeyPrefix = "doctors:list:"

// DoctorService serves the doctor directory and profile edits.
type DoctorService struct {
	doctors DoctorStore
	users   UserStore
	cache   cache.Cache
	ttl     time.Duration
	log     zerolog.Logger
}

func NewDoctorService(doctors DoctorStore, users UserStore, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *DoctorService {
	if c == nil {
		c = cache.Noop{}
	}
	return &DoctorService{
		doctors: doctors,
		users:   users,
		cache:   c,
		ttl:     ttl,
		log:     logger.With().Str("component", "doctors").Logger(),
	}
}

// doctorVersionKey is bumped on every profile write, so list entries cached
// under an older version are never read again.
const doctorVersionKey = "doctors:version"

func (s *DoctorService) version(ctx context.Context) int64 {
	var v int64
	if ok, err := s.cache.Get(ctx, doctorVersionKey, &v); err != nil || !ok {
		return 0
	}
	return v
}

func (s *DoctorService) invalidate(ctx context.Context) {
	v := s.version(ctx) + 1
	if err := s.cache.Set(ctx, doctorVersionKey, v, 0); err != nil {
		s.log.Warn().Err(err).Msg("failed to bump doctor cache version")
	}
}

// List returns active doctors matching f. "All" as a specialization means
// no filter. Results are cached for the configured TTL.
func (s *DoctorService) List(ctx context.Context, f repository.DoctorFilter) ([]models.Doctor, error) {
	if f.Specialization == "All" {
		f.Specialization = ""
	}
	f.Search = strings.TrimSpace(f.Search)

	key := fmt.Sprintf("%s%d:%s|%s|%d|%d", doctorListKeyPrefix, s.version(ctx),
		f.Specialization, strings.ToLower(f.Search), f.MinExperience, f.MaxFees)
	var cached []models.Doctor
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("doctor cache read failed")
	}

	list, err := s.doctors.List(ctx, f)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list doctors")
	}
	if err := s.cache.Set(ctx, key, list, s.ttl); err != nil {
		s.log.Warn().Err(err).Msg("doctor cache write failed")
	}
	return list, nil
}

func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	d, err := s.doctors.Get(ctx, id)
	if isNotFound(err) {
		return nil, apperrors.NotFound("doctor-not-found", "Doctor not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load doctor")
	}
	return d, nil
}

func (s *DoctorService) Specializations(ctx context.Context) ([]string, error) {
	list, err := s.doctors.Specializations(ctx)
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to list specializations")
	}
	return list, nil
}

// CreateProfileInput is an admin's new doctor profile for an existing
// doctor-role account.
type CreateProfileInput struct {
	UserID         string
	Specialization string
	Qualifications string
	Experience     int
	Hospital       string
	Fees           int
	Availability   models.Availability
	Image          string
	About          string
}

func (s *DoctorService) CreateProfile(ctx context.Context, in CreateProfileInput) (*models.Doctor, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if isNotFound(err) {
		return nil, apperrors.NotFound("not-found", "User not found")
	}
	if err != nil {
		return nil, storageFailure(s.log, err, "failed to load user")
	}
	if user.Role != models.RoleDoctor {
		return nil, apperrors.InvalidInput("invalid-role", "user %s is not a doctor", user.Email)
	}
	availability, err := normalizeAvailability(in.Availability)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Specialization) == "" {
		return nil, apperrors.InvalidInput("missing-fields", "specialization is required")
	}
	if in.Experience < 0 || in.Fees < 0 {
		return nil, apperrors.InvalidInput("invalid-value", "experience and fees cannot be negative")
	}

	d := &models.Doctor{
		ID:             user.ID,
		Name:           user.FullName(),
		Specialization: strings.TrimSpace(in.Specialization),
		Qualifications: strings.TrimSpace(in.Qualifications),
		Experience:     in.Experience,
		Hospital:       strings.TrimSpace(in.Hospital),
		Fees:           in.Fees,
		Availability:   availability,
		Image:          in.Image,
		About:          in.About,
		IsActive:       true,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		if isDuplicate(err) {
			return nil, apperrors.Conflict("duplicate-profile", "a profile already exists for this doctor")
		}
		return nil, storageFailure(s.log, err, "failed to create doctor profile")
	}
	s.invalidate(ctx)
	return d, nil
}

// UpdateProfileInput carries the fields a doctor may change on their own
// profile. Nil fields are left alone.
type UpdateProfileInput struct {
	About        *string
	Fees         *int
	Availability *models.Availability
}

func (s *DoctorService) UpdateOwnProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (*models.Doctor, error) {
	if actor.Role != models.RoleDoctor {
		return nil, apperrors.Forbidden("not-owner", "only doctors can edit a doctor profile")
	}
	d, err := s.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if in.About != nil {
		d.About = strings.TrimSpace(*in.About)
	}
	if in.Fees != nil {
		if *in.Fees < 0 {
			return nil, apperrors.InvalidInput("invalid-value", "fees cannot be negative")
		}
		d.Fees = *in.Fees
	}
	if in.Availability != nil {
		a, err := normalizeAvailability(*in.Availability)
		if err != nil {
			return nil, err
		}
		d.Availability = a
	}
	if err := s.doctors.UpdateProfile(ctx, d); err != nil {
		return nil, storageFailure(s.log, err, "failed to update doctor profile")
	}
	s.invalidate(ctx)
	return d, nil
}

// normalizeAvailability validates weekday names and drops blank and
// repeated slots, keeping their order.
func normalizeAvailability(a models.Availability) (models.Availability, error) {
	out := models.Availability{Days: []string{}, Slots: []string{}}
	seenDay := map[string]bool{}
	for _, d := range a.Days {
		d = strings.TrimSpace(d)
		if !calendar.IsValidShortWeekday(d) {
			return out, apperrors.InvalidInput("invalid-day", "%q is not a weekday, use one of %s",
				d, strings.Join(calendar.ShortWeekdays, ", "))
		}
		if !seenDay[d] {
			seenDay[d] = true
			out.Days = append(out.Days, d)
		}
	}
	seenSlot := map[string]bool{}
	for _, sl := range a.Slots {
		sl = strings.TrimSpace(sl)
		if sl == "" || seenSlot[sl] {
			continue
		}
		seenSlot[sl] = true
		out.Slots = append(out.Slots, sl)
	}
	return out, nil
}
