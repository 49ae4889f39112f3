package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type TravelStatus string

const (
	TravelStatusPlanning   TravelStatus = "planning"
	TravelStatusActive     TravelStatus = "active"
	TravelStatusInProgress TravelStatus = "inprogress"
	TravelStatusCompleted  TravelStatus = "completed"
	TravelStatusCancelled  TravelStatus = "cancelled"
	TravelStatusReported   TravelStatus = "reported"
)

// TravelDateField names a date column that trips can be range-queried on.
type TravelDateField string

const (
	ArrivalDateField TravelDateField = "arrival_date"
	ReturnDateField  TravelDateField = "return_date"
)

var (
	ErrReturnBeforeArrival = errors.New("return date must not be before arrival date")
	ErrUnknownStatus       = errors.New("unknown travel status")
)

// TravelHistory is a trip taken (or planned) by a creator and its participants.
// Participants is the full member set and normally includes the creator.
type TravelHistory struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	CreatorID    uint         `json:"creator_id" gorm:"not null;index"`
	Creator      User         `json:"creator" gorm:"foreignKey:CreatorID"`
	Participants []User       `json:"participants" gorm:"many2many:travel_participants;"`
	Destination  string       `json:"destination" gorm:"size:255;not null"`
	ArrivalDate  time.Time    `json:"arrival_date" gorm:"not null;index:idx_travel_status_arrival,priority:2"`
	ReturnDate   time.Time    `json:"return_date" gorm:"not null;index:idx_travel_status_return,priority:2"`
	Status       TravelStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index:idx_travel_status_arrival,priority:1;index:idx_travel_status_return,priority:1;check:status IN ('planning','active','inprogress','completed','cancelled','reported')"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the TravelHistory model
func (TravelHistory) TableName() string {
	return "travel_histories"
}

// BeforeSave rejects trips whose return date precedes the arrival date or
// whose status is unknown. An empty status falls back to the column default.
func (t *TravelHistory) BeforeSave(tx *gorm.DB) error {
	if t.Status != "" && !t.Status.IsValid() {
		return ErrUnknownStatus
	}
	if t.ReturnDate.Before(t.ArrivalDate) {
		return ErrReturnBeforeArrival
	}
	return nil
}

// Members returns the creator followed by every other participant, each once.
func (t TravelHistory) Members() []User {
	members := make([]User, 0, len(t.Participants)+1)
	members = append(members, t.Creator)
	seen := map[uint]bool{t.Creator.ID: true}
	for _, p := range t.Participants {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		members = append(members, p)
	}
	return members
}

// IsValid checks if the status is one of the known values
func (s TravelStatus) IsValid() bool {
	switch s {
	case TravelStatusPlanning, TravelStatusActive, TravelStatusInProgress,
		TravelStatusCompleted, TravelStatusCancelled, TravelStatusReported:
		return true
	default:
		return false
	}
}
