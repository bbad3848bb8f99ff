package models

import (
	"time"

	"medicare-server/internal/calendar"
)

// Availability is a doctor's recurring weekly schedule: the weekdays they see
// patients (Mon..Sun) and the slot labels offered on each of those days.
type Availability struct {
	Days  []string `json:"days"`
	Slots []string `json:"slots"`
}

// WorksOn reports whether d falls on one of the availability days.
func (a Availability) WorksOn(d calendar.Date) bool {
	day := d.ShortWeekday()
	for _, x := range a.Days {
		if x == day {
			return true
		}
	}
	return false
}

// HasSlot reports whether label is one of the configured slots.
func (a Availability) HasSlot(label string) bool {
	for _, s := range a.Slots {
		if s == label {
			return true
		}
	}
	return false
}

// Doctor is the public profile of a doctor-role user. ID equals the user's ID.
type Doctor struct {
	ID             string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string       `gorm:"size:150;not null;index" json:"name"`
	Specialization string       `gorm:"size:100;not null;index" json:"specialization"`
	Qualifications string       `gorm:"size:255" json:"qualifications"`
	Experience     int          `gorm:"not null;default:0" json:"experience"`
	Hospital       string       `gorm:"size:200" json:"hospital"`
	Fees           int          `gorm:"not null;default:0" json:"fees"`
	Availability   Availability `gorm:"type:json;serializer:json" json:"availability"`
	Image          string       `gorm:"size:255" json:"image"`
	About          string       `gorm:"type:text" json:"about"`
	Rating         float64      `gorm:"not null;default:0" json:"rating"`
	NumReviews     int          `gorm:"not null;default:0" json:"numReviews"`
	IsActive       bool         `gorm:"not null;default:true" json:"isActive"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
