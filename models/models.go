package models

import (
	"time"

	"gorm.io/gorm"
)

// Photo is one uploaded photo: the metadata row referencing the object stored
// in the bucket. A row is only created after the bytes are stored.
type Photo struct {
	ID          string         `json:"id" gorm:"type:uuid;primarykey"`
	UserID      string         `json:"user_id" gorm:"type:uuid;not null;index"`
	FileName    string         `json:"file_name" gorm:"size:255;not null"`
	StoragePath string         `json:"storage_path" gorm:"size:512;not null;uniqueIndex"`
	PublicURL   string         `json:"public_url" gorm:"type:text;not null"`
	Caption     string         `json:"caption,omitempty" gorm:"size:500"`
	FileSize    int64          `json:"file_size"`
	MimeType    string         `json:"mime_type" gorm:"size:100"`
	Width       int            `json:"width,omitempty"`
	Height      int            `json:"height,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// PhotoFeed is one page of the public feed, newest first.
type PhotoFeed struct {
	Photos     []Photo `json:"photos"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalCount int64   `json:"total_count"`
	HasMore    bool    `json:"has_more"`
}

// User mirrors the identity the auth service resolves from an access token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
