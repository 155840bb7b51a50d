package repository

import (
	"fmt"

	"gorm.io/gorm"

	"photoshare/internal/model"
)

// getOrCreateTag resolves a tag by name inside tx, creating it lazily on first
// use anywhere. Tag rows are shared across images, so creation must join the
// surrounding transaction of whichever image mutation needs the tag.
func getOrCreateTag(tx *gorm.DB, name string) (*model.Tag, error) {
	var tag model.Tag
	if err := tx.Where(model.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
		return nil, fmt.Errorf("get or create tag failed: %w", err)
	}
	return &tag, nil
}
