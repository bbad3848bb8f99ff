package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// BedHandler serves bed availability, reservations and ward administration.
type BedHandler struct {
	Beds *services.BedService
}

func NewBedHandler(beds *services.BedService) *BedHandler {
	return &BedHandler{Beds: beds}
}

// Availability handles GET /beds/availability.
func (h *BedHandler) Availability(c *gin.Context) {
	summary, err := h.Beds.Availability(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Bed availability fetched successfully", summary)
}

// AvailableBeds handles GET /beds/available/:wardType.
func (h *BedHandler) AvailableBeds(c *gin.Context) {
	list, err := h.Beds.ListAvailable(c.Request.Context(), c.Param("wardType"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Available beds fetched successfully", list)
}

// BookBedRequest is a reservation request. dischargeDate is accepted as an
// alias of expectedDischarge.
type BookBedRequest struct {
	BedID             string                   `json:"bedId"`
	AdmissionDate     string                   `json:"admissionDate"`
	ExpectedDischarge string                   `json:"expectedDischarge"`
	DischargeDate     string                   `json:"dischargeDate"`
	Reason            string                   `json:"reason"`
	EmergencyContact  *models.EmergencyContact `json:"emergencyContact"`
}

// Book handles POST /beds/book.
func (h *BedHandler) Book(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req BookBedRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	discharge := req.ExpectedDischarge
	if discharge == "" {
		discharge = req.DischargeDate
	}
	booking, err := h.Beds.Book(c.Request.Context(), actor, services.BookBedInput{
		BedID:            req.BedID,
		AdmissionDate:    req.AdmissionDate,
		DischargeDate:    discharge,
		Reason:           req.Reason,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Bed booked successfully", booking)
}

func (h *BedHandler) MyBookings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.Beds.MyBookings(c.Request.Context(), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Bookings fetched successfully", list)
}

// CancelBooking handles DELETE /beds/booking/:id.
func (h *BedHandler) CancelBooking(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.Beds.Cancel(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Booking cancelled successfully", nil)
}

// ListBookings is the admin view, ?status= optional.
func (h *BedHandler) ListBookings(c *gin.Context) {
	list, err := h.Beds.ListBookings(c.Request.Context(), c.Query("status"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Bookings fetched successfully", list)
}

func (h *BedHandler) Admit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	booking, err := h.Beds.Admit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Patient admitted successfully", booking)
}

func (h *BedHandler) Discharge(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	booking, err := h.Beds.Discharge(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Patient discharged successfully", booking)
}

// CreateBedRequest describes a new bed.
type CreateBedRequest struct {
	BedNumber   string   `json:"bedNumber" binding:"required"`
	WardType    string   `json:"wardType" binding:"required"`
	Floor       int      `json:"floor"`
	PricePerDay int      `json:"pricePerDay" binding:"required,gt=0"`
	Features    []string `json:"features"`
}

func (h *BedHandler) CreateBed(c *gin.Context) {
	var req CreateBedRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	bed, err := h.Beds.CreateBed(c.Request.Context(), services.CreateBedInput{
		BedNumber:   req.BedNumber,
		WardType:    req.WardType,
		Floor:       req.Floor,
		PricePerDay: req.PricePerDay,
		Features:    req.Features,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Bed created successfully", bed)
}

// MaintenanceRequest toggles maintenance on a bed.
type MaintenanceRequest struct {
	Maintenance bool `json:"maintenance"`
}

// SetMaintenance handles PUT /beds/:id/maintenance.
func (h *BedHandler) SetMaintenance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req MaintenanceRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	bed, err := h.Beds.SetMaintenance(c.Request.Context(), actor, c.Param("id"), req.Maintenance)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Bed updated successfully", bed)
}
