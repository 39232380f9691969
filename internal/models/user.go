package models

import (
	"time"
)

type User struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Username *string `gorm:"uniqueIndex;size:255" json:"username"` // nil for guests that never claimed a name
	Email    *string `gorm:"uniqueIndex;size:255" json:"-"`
	Nickname *string `gorm:"size:255" json:"nickname"`
	Password string  `json:"-"` // bcrypt hash, empty for guests
	// GuestID is the UUID carried by the guest cookie. It survives a later
	// username claim so the account keeps its lists, posts and goods.
	GuestID   *string   `gorm:"uniqueIndex;size:36" json:"-"`
	Private   bool      `gorm:"not null" json:"private"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// No DeletedAt: accounts are deactivated, never removed
}

// IsGuest reports whether the account is still an unnamed guest.
func (u *User) IsGuest() bool {
	return u.Username == nil && u.GuestID != nil
}

// DisplayName is the name written into legacy display-name snapshots.
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	if u.GuestID != nil {
		return "u-" + *u.GuestID
	}
	return ""
}

// UsernameOrEmpty returns the username or "" for guests.
func (u *User) UsernameOrEmpty() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}
