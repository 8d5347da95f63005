package models

import "time"

// User represents a user of the store.
// PasswordHash is empty for accounts created through OAuth.
type User struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username          string    `json:"username" gorm:"type:varchar(100);not null"`
	Email             string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash      string    `json:"-" gorm:"type:varchar(255)"`
	Address           string    `json:"address" gorm:"type:text"`
	GoogleID          string    `json:"-" gorm:"type:varchar(255);index"`
	EmailVerified     bool      `json:"emailVerified" gorm:"not null;default:false"`
	VerificationToken string    `json:"-" gorm:"type:varchar(64);index"`
	IsAdmin           bool      `json:"isAdmin" gorm:"not null;default:false"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
