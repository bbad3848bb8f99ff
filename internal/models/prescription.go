package models

import "time"

// Prescription is a standalone prescription, written when a doctor completes
// an appointment or attached to a medical record.
type Prescription struct {
	BaseModel
	PatientID     string       `gorm:"size:36;not null;index:idx_prescription_patient_date" json:"patientId"`
	DoctorID      string       `gorm:"size:36;not null;index" json:"doctorId"`
	RecordID      *string      `gorm:"size:36" json:"recordId,omitempty"`
	AppointmentID *string      `gorm:"size:36;index" json:"appointmentId,omitempty"`
	Medicines     []Medication `gorm:"type:json;serializer:json" json:"medicines"`
	Diagnosis     string       `gorm:"type:text" json:"diagnosis"`
	Notes         string       `gorm:"type:text" json:"notes"`
	Date          time.Time    `gorm:"not null;index:idx_prescription_patient_date" json:"date"`
	ValidUntil    *time.Time   `json:"validUntil,omitempty"`
	IsActive      bool         `gorm:"not null;default:true;index" json:"isActive"`

	Doctor *Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}
