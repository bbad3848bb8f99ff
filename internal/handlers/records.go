package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// RecordHandler handles medical records and prescriptions.
type RecordHandler struct {
	Records *services.RecordService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(records *services.RecordService) *RecordHandler {
	return &RecordHandler{Records: records}
}

func recordQuery(c *gin.Context) services.RecordQuery {
	return services.RecordQuery{Status: c.Query("status"), VisitType: c.Query("visitType")}
}

// ListRecords handles GET /records for the calling patient.
func (h *RecordHandler) ListRecords(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.Records.ListOwn(c.Request.Context(), actor, recordQuery(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical records fetched successfully", list)
}

// ListPatientRecords handles GET /records/patient/:patientId. Doctors may
// read any patient; a patient only themselves.
func (h *RecordHandler) ListPatientRecords(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.Records.ListForPatient(c.Request.Context(), actor, c.Param("patientId"), recordQuery(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical records fetched successfully", list)
}

func (h *RecordHandler) GetRecord(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	rec, err := h.Records.GetOwn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical record fetched successfully", rec)
}

func (h *RecordHandler) Stats(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	stats, err := h.Records.Stats(c.Request.Context(), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Record stats fetched successfully", stats)
}

// CreateMedicalRecordRequest represents the request body for creating a medical record.
type CreateMedicalRecordRequest struct {
	PatientID     string         `json:"patientId" binding:"required"`
	AppointmentID string         `json:"appointmentId"`
	VisitType     string         `json:"visitType"`
	Diagnosis     string         `json:"diagnosis" binding:"required"`
	Symptoms      []string       `json:"symptoms"`
	Notes         string         `json:"notes"`
	Vitals        *models.Vitals `json:"vitals"`
	Date          string         `json:"date"`
}

// CreateRecord handles creating a new medical record. Doctors only.
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	rec, err := h.Records.Create(c.Request.Context(), actor, services.CreateRecordInput{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		VisitType:     req.VisitType,
		Diagnosis:     req.Diagnosis,
		Symptoms:      req.Symptoms,
		Notes:         req.Notes,
		Vitals:        req.Vitals,
		Date:          req.Date,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Medical record created successfully", rec)
}

// ListPrescriptions handles GET /prescriptions?isActive=.
func (h *RecordHandler) ListPrescriptions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.Records.ListPrescriptions(c.Request.Context(), actor, c.Query("isActive"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Prescriptions fetched successfully", list)
}

func (h *RecordHandler) GetPrescription(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p, err := h.Records.GetPrescription(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Prescription fetched successfully", p)
}

func (h *RecordHandler) ActivePrescriptionCount(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	n, err := h.Records.ActivePrescriptionCount(c.Request.Context(), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Active prescriptions counted", gin.H{"count": n})
}
