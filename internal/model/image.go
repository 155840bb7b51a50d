package model

import "time"

type Image struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// StoredName is the generated object name (uuid + original extension),
	// never derived from user input.
	StoredName string `gorm:"size:128;not null;uniqueIndex" json:"stored_name"`
	Size       int64  `gorm:"not null" json:"size"`
	Title      string `gorm:"size:128;not null" json:"title"`
	Path       string `gorm:"size:255;not null" json:"path"`
	MimeType   string `gorm:"size:64;not null" json:"mime_type"`
	OwnerID    uint   `gorm:"not null;index" json:"owner_id"`
	Owner      *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	// CountTags caches the number of distinct tags attached to the image and
	// is kept in step with the join table inside every tag mutation.
	CountTags int       `gorm:"not null;default:0" json:"count_tags"`
	Tags      []Tag     `gorm:"many2many:image_tags;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
