package models

import "time"

// JobLease is the mutual exclusion token a batch run holds while it executes.
type JobLease struct {
	Name       string    `json:"name" gorm:"primaryKey;size:100"`
	Holder     string    `json:"holder" gorm:"size:64;not null"`
	AcquiredAt time.Time `json:"acquired_at" gorm:"not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
}

// TableName specifies the table name for the JobLease model
func (JobLease) TableName() string {
	return "job_leases"
}
