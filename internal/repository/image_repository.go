package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"photoshare/internal/model"
)

// ErrTagLimitReached is returned by AttachTag when the image already carries
// the maximum number of distinct tags.
var ErrTagLimitReached = errors.New("tag limit reached")

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create persists the image metadata and, when tagName is non-empty, attaches
// the tag in the same transaction, creating it lazily. CountTags always ends
// equal to the number of join rows.
func (r *ImageRepository) Create(image *model.Image, tagName string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if tagName != "" {
			tag, err := getOrCreateTag(tx, tagName)
			if err != nil {
				return err
			}
			image.Tags = []model.Tag{*tag}
			image.CountTags = 1
		}
		return tx.Create(image).Error
	})
	if err != nil {
		return fmt.Errorf("create image failed: %w", err)
	}
	return nil
}

func (r *ImageRepository) GetByID(id uint) (*model.Image, error) {
	var image model.Image
	if err := r.db.Preload("Owner").Preload("Tags").First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query image by id failed: %w", err)
	}
	return &image, nil
}

// ListAll returns a stable page ordered by id ascending.
func (r *ImageRepository) ListAll(limit, offset int) ([]model.Image, error) {
	var images []model.Image
	if err := r.db.Preload("Owner").Preload("Tags").
		Order("id ASC").Limit(limit).Offset(offset).
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images failed: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) ListByOwner(ownerID uint, limit, offset int) ([]model.Image, error) {
	var images []model.Image
	if err := r.db.Preload("Owner").Preload("Tags").
		Where("owner_id = ?", ownerID).
		Order("id ASC").Limit(limit).Offset(offset).
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images by owner failed: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) ListByTag(tagName string, limit, offset int) ([]model.Image, error) {
	var images []model.Image
	if err := r.db.Preload("Owner").Preload("Tags").
		Joins("JOIN image_tags ON image_tags.image_id = images.id").
		Joins("JOIN tags ON tags.id = image_tags.tag_id").
		Where("tags.name = ?", tagName).
		Order("images.id ASC").Limit(limit).Offset(offset).
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images by tag failed: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) UpdateTitle(id uint, title string) error {
	if err := r.db.Model(&model.Image{}).Where("id = ?", id).
		Update("title", title).Error; err != nil {
		return fmt.Errorf("update image title failed: %w", err)
	}
	return nil
}

// AttachTag adds a tag to an image inside one transaction. The call is
// idempotent when the tag is already attached, creates the tag on first use
// anywhere, and keeps count_tags equal to the true number of associations.
// Returns (nil, nil) when the image does not exist.
func (r *ImageRepository) AttachTag(imageID uint, tagName string, maxTags int) (*model.Image, error) {
	var image model.Image
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tags").First(&image, imageID).Error; err != nil {
			return err
		}

		for _, t := range image.Tags {
			if t.Name == tagName {
				return nil
			}
		}

		if len(image.Tags) >= maxTags {
			return ErrTagLimitReached
		}

		tag, err := getOrCreateTag(tx, tagName)
		if err != nil {
			return err
		}
		if err := tx.Model(&image).Association("Tags").Append(tag); err != nil {
			return fmt.Errorf("append tag association failed: %w", err)
		}

		var count int64
		if err := tx.Table("image_tags").Where("image_id = ?", image.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("count tag associations failed: %w", err)
		}
		image.CountTags = int(count)
		return tx.Model(&model.Image{}).Where("id = ?", image.ID).
			Update("count_tags", count).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if errors.Is(err, ErrTagLimitReached) {
			return nil, ErrTagLimitReached
		}
		return nil, fmt.Errorf("attach tag failed: %w", err)
	}
	return &image, nil
}

// Delete removes the metadata row together with its tag associations and
// comments. Tag entities themselves are shared and stay behind.
func (r *ImageRepository) Delete(imageID uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM image_tags WHERE image_id = ?", imageID).Error; err != nil {
			return fmt.Errorf("delete tag associations failed: %w", err)
		}
		if err := tx.Where("image_id = ?", imageID).Delete(&model.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments failed: %w", err)
		}
		return tx.Delete(&model.Image{}, imageID).Error
	})
	if err != nil {
		return fmt.Errorf("delete image failed: %w", err)
	}
	return nil
}
