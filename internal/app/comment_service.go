package app

import (
	"strings"

	"photoshare/internal/model"
)

// CommentStore persists comments; rows vanish with their image.
type CommentStore interface {
	Create(comment *model.Comment) error
	ListByImage(imageID uint, limit, offset int) ([]model.Comment, error)
}

type CommentService struct {
	comments    CommentStore
	images      ImageStore
	maxPageSize int
}

func NewCommentService(comments CommentStore, images ImageStore, maxPageSize int) *CommentService {
	if maxPageSize <= 0 {
		maxPageSize = 500
	}
	return &CommentService{
		comments:    comments,
		images:      images,
		maxPageSize: maxPageSize,
	}
}

func (s *CommentService) Add(imageID, userID uint, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" || userID == 0 {
		return nil, ErrInvalidInput
	}

	image, err := s.images.GetByID(imageID)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrImageNotFound
	}

	comment := &model.Comment{
		Text:    text,
		UserID:  userID,
		ImageID: imageID,
	}
	if err := s.comments.Create(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) ListByImage(imageID uint, limit, offset int) ([]model.Comment, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.comments.ListByImage(imageID, limit, offset)
}
