package models

import (
	"time"
)

const (
	HomeListName        = "Home"
	HomeListDescription = "ホーム"
)

// UserList is a named collection of posts owned by one account.
type UserList struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;uniqueIndex:uniq_owner_list_name" json:"owner_id"`
	Owner       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name        string    `gorm:"size:255;not null;uniqueIndex:uniq_owner_list_name" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsPublic    bool      `gorm:"not null" json:"is_public"`
	GootCount   int       `gorm:"not null;default:0" json:"goot_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GootList is one actor's like ("goot") on a list.
type GootList struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:uniq_user_list_goot" json:"user_id"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserListID uint      `gorm:"not null;index;uniqueIndex:uniq_user_list_goot" json:"userlist_id"`
	UserList   UserList  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
