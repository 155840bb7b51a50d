package model

// Tag names form a shared namespace across all images. They are normalized to
// lower case before storage, so lookups are case-insensitive.
type Tag struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	Name   string  `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Images []Image `gorm:"many2many:image_tags" json:"-"`
}
