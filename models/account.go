package models

import (
	"time"
)

type ProPlan string

const (
	ProPlanMonth ProPlan = "month"
	ProPlanYear  ProPlan = "year"
)

// ProInfo is the VIP subscription state of an account. The zero value is
// the "no subscription" state.
type ProInfo struct {
	IsPro       bool       `json:"is_pro" gorm:"default:false;index"`
	Plan        *ProPlan   `json:"plan" gorm:"type:varchar(10)"`
	ExpireAt    *time.Time `json:"expire_at" gorm:"index"`
	ActivatedAt *time.Time `json:"activated_at"`
}

// PlanName returns the plan or an empty string when none is set
func (p ProInfo) PlanName() ProPlan {
	if p.Plan == nil {
		return ""
	}
	return *p.Plan
}

// IsCleared reports whether every subscription field is in its reset state
func (p ProInfo) IsCleared() bool {
	return !p.IsPro && p.Plan == nil && p.ExpireAt == nil && p.ActivatedAt == nil
}

type Account struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:255;uniqueIndex;not null"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      User      `json:"user" gorm:"foreignKey:UserID"`
	ProInfo   ProInfo   `json:"pro_info" gorm:"embedded;embeddedPrefix:pro_"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}
