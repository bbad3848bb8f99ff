package models

import (
	"time"
)

// VisitType categorises a medical record
type VisitType string

const (
	VisitConsultation   VisitType = "Consultation"
	VisitFollowUp       VisitType = "Follow-up"
	VisitLabTest        VisitType = "Lab Test"
	VisitSurgery        VisitType = "Surgery"
	VisitEmergency      VisitType = "Emergency"
	VisitRoutineCheckup VisitType = "Routine Checkup"
)

var VisitTypes = []VisitType{
	VisitConsultation, VisitFollowUp, VisitLabTest, VisitSurgery, VisitEmergency, VisitRoutineCheckup,
}

func (v VisitType) Valid() bool {
	for _, x := range VisitTypes {
		if x == v {
			return true
		}
	}
	return false
}

// RecordStatus of a medical record
type RecordStatus string

const (
	RecordCompleted RecordStatus = "Completed"
	RecordCancelled RecordStatus = "Cancelled"
	RecordPending   RecordStatus = "Pending"
)

// Vitals measured during a visit, stored as entered.
type Vitals struct {
	BloodPressure string `json:"bloodPressure,omitempty"`
	Temperature   string `json:"temperature,omitempty"`
	Pulse         string `json:"pulse,omitempty"`
	Weight        string `json:"weight,omitempty"`
}

// MedicalRecord represents a patient's visit history entry
type MedicalRecord struct {
	BaseModel
	PatientID     string       `gorm:"size:36;not null;index:idx_record_patient_date" json:"patientId"`
	DoctorID      string       `gorm:"size:36;not null;index" json:"doctorId"`
	AppointmentID *string      `gorm:"size:36" json:"appointmentId,omitempty"`
	VisitType     VisitType    `gorm:"size:30;not null;default:'Consultation'" json:"visitType"`
	Diagnosis     string       `gorm:"type:text;not null" json:"diagnosis"`
	Symptoms      []string     `gorm:"type:json;serializer:json" json:"symptoms"`
	Notes         string       `gorm:"type:text" json:"notes"`
	Vitals        *Vitals      `gorm:"type:json;serializer:json" json:"vitals,omitempty"`
	RecordDate    time.Time    `gorm:"not null;index:idx_record_patient_date" json:"date"`
	Status        RecordStatus `gorm:"size:20;not null;default:'Completed';index" json:"status"`

	// Relations
	Doctor *Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// RecordStats summarises a patient's records.
type RecordStats struct {
	Total       int               `json:"total"`
	Completed   int               `json:"completed"`
	ByVisitType map[VisitType]int `json:"byVisitType"`
}
