package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/repository"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// DoctorHandler serves the public doctor directory and the doctor's own
// profile.
type DoctorHandler struct {
	Doctors      *services.DoctorService
	Appointments *services.AppointmentService
	Reviews      *services.ReviewService
}

func NewDoctorHandler(doctors *services.DoctorService, appointments *services.AppointmentService, reviews *services.ReviewService) *DoctorHandler {
	return &DoctorHandler{Doctors: doctors, Appointments: appointments, Reviews: reviews}
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		utils.BadRequest(c, key+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// ListDoctors handles GET /doctors?specialization=&search=&minExperience=&maxFees=.
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	minExp, ok := queryInt(c, "minExperience")
	if !ok {
		return
	}
	maxFees, ok := queryInt(c, "maxFees")
	if !ok {
		return
	}
	list, err := h.Doctors.List(c.Request.Context(), repository.DoctorFilter{
		Specialization: c.Query("specialization"),
		Search:         c.Query("search"),
		MinExperience:  minExp,
		MaxFees:        maxFees,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", list)
}

func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	doctor, err := h.Doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctor fetched successfully", doctor)
}

func (h *DoctorHandler) Specializations(c *gin.Context) {
	list, err := h.Doctors.Specializations(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Specializations fetched successfully", list)
}

// AvailableSlots handles GET /appointments/slots/:doctorId/:date.
func (h *DoctorHandler) AvailableSlots(c *gin.Context) {
	slots, err := h.Appointments.AvailableSlots(c.Request.Context(), c.Param("doctorId"), c.Param("date"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Slots fetched successfully", slots)
}

func (h *DoctorHandler) ListReviews(c *gin.Context) {
	list, err := h.Reviews.ListByDoctor(c.Request.Context(), c.Param("doctorId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Reviews fetched successfully", list)
}

// MyProfile returns the calling doctor's profile.
func (h *DoctorHandler) MyProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	doctor, err := h.Doctors.Get(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", doctor)
}

// UpdateDoctorProfileRequest carries the fields a doctor may change.
type UpdateDoctorProfileRequest struct {
	About        *string              `json:"about"`
	Fees         *int                 `json:"fees" binding:"omitempty,gte=0"`
	Availability *models.Availability `json:"availability"`
}

func (h *DoctorHandler) UpdateMyProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req UpdateDoctorProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor, err := h.Doctors.UpdateOwnProfile(c.Request.Context(), actor, services.UpdateProfileInput{
		About:        req.About,
		Fees:         req.Fees,
		Availability: req.Availability,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Profile updated successfully", doctor)
}
