package models

import (
	"time"
)

const DefaultContentType = "未設定"

// UserPost is one actor's reference to an external URL.
//
// Legacy compatibility fields: posts created before accounts were linked carry
// only UsernameLegacy (UserID nil). Ownership and Good matching always try the
// UserID first and fall back to UsernameLegacy. GoodCount is no longer
// maintained; ContentData.GoodCount is authoritative.
type UserPost struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         *uint     `gorm:"index;uniqueIndex:uniq_post_user_content" json:"user_id"`
	User           *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UsernameLegacy string    `gorm:"size:200;index" json:"username"`
	Description    string    `gorm:"type:text" json:"description"`
	ContentURL     string    `gorm:"size:2048;not null;uniqueIndex:uniq_post_user_content" json:"content_url"`
	ListID         *uint     `gorm:"index" json:"list_id"`
	List           *UserList `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	GoodCount      int       `gorm:"not null;default:0" json:"good_count"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ContentData caches scraped metadata for one URL plus its live Good count.
// The row is removed once GoodCount drops to zero.
type ContentData struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContentURL  string    `gorm:"size:2048;not null;uniqueIndex" json:"content_url"`
	Title       string    `gorm:"size:200" json:"title"`
	Image       string    `gorm:"size:2048" json:"image"`
	Description string    `gorm:"type:text" json:"description"`
	ContentType string    `gorm:"size:200" json:"content_type"`
	GoodCount   int       `gorm:"not null;default:0" json:"good_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Good is one actor's like on a content URL.
type Good struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         *uint     `gorm:"index;uniqueIndex:uniq_good_user_content" json:"user_id"`
	User           *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UsernameLegacy string    `gorm:"size:200;index" json:"username"`
	ContentURL     string    `gorm:"size:2048;not null;index;uniqueIndex:uniq_good_user_content" json:"content_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserList{},
		&GootList{},
		&ContentData{},
		&UserPost{},
		&Good{},
	}
}
