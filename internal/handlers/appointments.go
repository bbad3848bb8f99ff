package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// AppointmentHandler serves the patient side of appointments.
type AppointmentHandler struct {
	Appointments *services.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Appointments: appointments}
}

// CreateAppointmentRequest represents the request body for booking.
type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// CreateAppointment books a slot for the calling patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.Appointments.Create(c.Request.Context(), actor, services.CreateAppointmentInput{
		DoctorID: req.DoctorID,
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
		Reason:   req.Reason,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appt)
}

// GetAppointments lists the patient's appointments, ?status= optional.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.Appointments.ListForPatient(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", list)
}

func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appt, err := h.Appointments.GetForPatient(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// UpdateAppointmentRequest carries a patient's edit. Only Cancelled is
// accepted as a status; notes may change at any time.
type UpdateAppointmentRequest struct {
	Status *models.AppointmentStatus `json:"status"`
	Notes  *string                   `json:"notes"`
}

func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	if req.Status != nil {
		if *req.Status != models.StatusCancelled {
			utils.BadRequest(c, `Patients may only set status to "Cancelled"`)
			return
		}
		if err := h.Appointments.Cancel(ctx, actor, id); err != nil {
			utils.RespondError(c, err)
			return
		}
	}
	var appt *models.Appointment
	var err error
	if req.Notes != nil {
		appt, err = h.Appointments.UpdateNotes(ctx, actor, id, *req.Notes)
	} else {
		appt, err = h.Appointments.GetForPatient(ctx, actor, id)
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appt)
}

// CancelAppointment handles DELETE /appointments/:id.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.Appointments.Cancel(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", nil)
}
