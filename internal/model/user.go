package model

import "time"

// User represents a registered chat participant.
// DeviceID is the logical identity key; ID is the generated record key.
type User struct {
	ID       string    `json:"id" gorm:"primaryKey;size:36"`
	Username string    `json:"username" gorm:"size:64"`
	DeviceID string    `json:"device_id" gorm:"uniqueIndex;not null;size:64"`
	LastSeen time.Time `json:"last_seen" gorm:"not null"`
	IsOnline bool      `json:"is_online" gorm:"not null"`
}

// UserCreate is the payload accepted by POST /api/users
type UserCreate struct {
	Username string `json:"username"`
	DeviceID string `json:"device_id"`
}
