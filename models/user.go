package models

import (
	"time"
)

// User is the public profile of a member. Trips, accounts and notifications
// all point at it.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FullName  string    `json:"full_name" gorm:"size:255;not null"`
	Email     string    `json:"email" gorm:"size:255;uniqueIndex"`
	Avatar    *string   `json:"avatar" gorm:"size:512"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// AvatarURL returns the avatar or an empty string when none is set
func (u User) AvatarURL() string {
	if u.Avatar == nil {
		return ""
	}
	return *u.Avatar
}
