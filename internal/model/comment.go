package model

import "time"

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:1024;not null" json:"text"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	ImageID   uint      `gorm:"not null;index" json:"image_id"`
	Image     *Image    `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
