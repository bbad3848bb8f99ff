package models

import "math"

// Review is a patient's rating of a completed appointment. One per appointment.
type Review struct {
	BaseModel
	DoctorID      string `gorm:"size:36;not null;index" json:"doctorId"`
	PatientID     string `gorm:"size:36;not null;index" json:"patientId"`
	AppointmentID string `gorm:"size:36;not null;uniqueIndex" json:"appointmentId"`
	Rating        int    `gorm:"not null" json:"rating"`
	Comment       string `gorm:"type:text;not null" json:"comment"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

// ComputeRating is the mean rating rounded to one decimal, 0 with no ratings.
func ComputeRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10
}
