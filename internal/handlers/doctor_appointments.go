package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// DoctorAppointmentHandler serves the doctor's appointment dashboard.
type DoctorAppointmentHandler struct {
	Appointments *services.AppointmentService
}

func NewDoctorAppointmentHandler(appointments *services.AppointmentService) *DoctorAppointmentHandler {
	return &DoctorAppointmentHandler{Appointments: appointments}
}

// DoctorAppointmentList is the list response with its status counters.
type DoctorAppointmentList struct {
	Appointments []models.Appointment `json:"appointments"`
	Summary      models.StatusSummary `json:"summary"`
}

// List handles GET /doctor/appointments?status=&date=&sortBy=.
func (h *DoctorAppointmentHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	list, summary, err := h.Appointments.ListForDoctor(c.Request.Context(), actor, services.DoctorListQuery{
		Status: c.Query("status"),
		Date:   c.Query("date"),
		SortBy: c.Query("sortBy"),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", DoctorAppointmentList{Appointments: list, Summary: summary})
}

func (h *DoctorAppointmentHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appt, err := h.Appointments.GetForDoctor(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

func (h *DoctorAppointmentHandler) Today(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.Appointments.Today(c.Request.Context(), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Today's schedule fetched successfully", list)
}

func (h *DoctorAppointmentHandler) Stats(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	stats, err := h.Appointments.Stats(c.Request.Context(), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Stats fetched successfully", stats)
}

// DecideRequest confirms or rejects a pending appointment.
type DecideRequest struct {
	Status          models.AppointmentStatus `json:"status" binding:"required"`
	RejectionReason string                   `json:"rejectionReason"`
}

// UpdateStatus handles PUT /doctor/appointments/:id/status.
func (h *DoctorAppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req DecideRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.Appointments.Decide(c.Request.Context(), actor, c.Param("id"), req.Status, req.RejectionReason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment "+string(appt.Status)+" successfully", appt)
}

// CompleteRequest carries the prescription written at completion.
type CompleteRequest struct {
	Prescription struct {
		Medications []models.Medication `json:"medications"`
		Diagnosis   string              `json:"diagnosis"`
		Notes       string              `json:"notes"`
	} `json:"prescription"`
}

// Complete handles PUT /doctor/appointments/:id/complete.
func (h *DoctorAppointmentHandler) Complete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CompleteRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.Appointments.Complete(c.Request.Context(), actor, c.Param("id"), services.PrescriptionInput{
		Medications: req.Prescription.Medications,
		Diagnosis:   req.Prescription.Diagnosis,
		Notes:       req.Prescription.Notes,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment completed successfully", appt)
}
