package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"photoshare/internal/model"
	"photoshare/internal/repository"
)

var (
	ErrImageNotFound   = errors.New("image not found")
	ErrForbidden       = errors.New("operation not permitted")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("file is not an image")
	ErrTagLimitReached = errors.New("tag limit reached")
)

// sniffLen bounds how much of the upload is buffered for content detection;
// the rest streams straight to storage.
const sniffLen = 3072

// ImageStore is the metadata store consumed by the image orchestrator.
type ImageStore interface {
	Create(image *model.Image, tagName string) error
	GetByID(id uint) (*model.Image, error)
	ListAll(limit, offset int) ([]model.Image, error)
	ListByOwner(ownerID uint, limit, offset int) ([]model.Image, error)
	ListByTag(tagName string, limit, offset int) ([]model.Image, error)
	UpdateTitle(id uint, title string) error
	AttachTag(imageID uint, tagName string, maxTags int) (*model.Image, error)
	Delete(imageID uint) error
}

// FileStorage is the object-storage collaborator for image bytes.
type FileStorage interface {
	Write(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) canModerate() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleModerator
}

type ImageService struct {
	images      ImageStore
	storage     FileStorage
	maxSize     int64
	maxTags     int
	maxPageSize int
}

type UploadInput struct {
	Reader   io.Reader
	Size     int64
	Filename string
	Title    string
	OwnerID  uint
	Tag      string
}

func NewImageService(images ImageStore, storage FileStorage, maxSize int64, maxTags, maxPageSize int) *ImageService {
	if maxPageSize <= 0 {
		maxPageSize = 500
	}
	return &ImageService{
		images:      images,
		storage:     storage,
		maxSize:     maxSize,
		maxTags:     maxTags,
		maxPageSize: maxPageSize,
	}
}

// Upload validates size and content type before any byte reaches storage,
// then writes the object first and the metadata row second. A crash in
// between leaves an orphaned object, never a row pointing at a missing file.
func (s *ImageService) Upload(ctx context.Context, input UploadInput) (*model.Image, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || input.OwnerID == 0 {
		return nil, ErrInvalidInput
	}
	if input.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Reader, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, ErrUnsupportedType
	}

	// Stored name is generated, never taken from user input; only the
	// extension survives.
	storedName := uuid.NewString() + strings.ToLower(filepath.Ext(input.Filename))
	objectPath := "images/" + storedName

	body := io.MultiReader(bytes.NewReader(head), input.Reader)
	if err := s.storage.Write(ctx, objectPath, body, input.Size, detected.String()); err != nil {
		return nil, err
	}

	image := &model.Image{
		StoredName: storedName,
		Size:       input.Size,
		Title:      title,
		Path:       objectPath,
		MimeType:   detected.String(),
		OwnerID:    input.OwnerID,
	}
	if err := s.images.Create(image, normalizeTag(input.Tag)); err != nil {
		// The object stays behind as an orphan for a cleanup sweep; the
		// caller never sees metadata without a file.
		log.Printf("image metadata commit failed, orphaned object %s: %v", objectPath, err)
		return nil, err
	}
	return image, nil
}

// AddTag is idempotent for an already-attached tag and enforces the tag cap
// with a real count check inside the store transaction.
func (s *ImageService) AddTag(imageID uint, tagName string, actor Actor) (*model.Image, error) {
	name := normalizeTag(tagName)
	if name == "" || actor.ID == 0 {
		return nil, ErrInvalidInput
	}

	image, err := s.images.AttachTag(imageID, name, s.maxTags)
	if err != nil {
		if errors.Is(err, repository.ErrTagLimitReached) {
			return nil, ErrTagLimitReached
		}
		return nil, err
	}
	if image == nil {
		return nil, ErrImageNotFound
	}
	return image, nil
}

// ListByTag matches case-insensitively through tag normalization. An unknown
// tag and a tag with no images both yield an empty page.
func (s *ImageService) ListByTag(tagName string, limit, offset int) ([]model.Image, error) {
	limit, offset = s.clampPage(limit, offset)
	return s.images.ListByTag(normalizeTag(tagName), limit, offset)
}

func (s *ImageService) ListAll(limit, offset int) ([]model.Image, error) {
	limit, offset = s.clampPage(limit, offset)
	return s.images.ListAll(limit, offset)
}

func (s *ImageService) ListByOwner(ownerID uint, limit, offset int) ([]model.Image, error) {
	if ownerID == 0 {
		return nil, ErrInvalidInput
	}
	limit, offset = s.clampPage(limit, offset)
	return s.images.ListByOwner(ownerID, limit, offset)
}

func (s *ImageService) Get(imageID uint) (*model.Image, error) {
	image, err := s.images.GetByID(imageID)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrImageNotFound
	}
	return image, nil
}

// UpdateTitle is owner-only; moderation roles do not edit titles.
func (s *ImageService) UpdateTitle(imageID uint, title string, actor Actor) (*model.Image, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	image, err := s.images.GetByID(imageID)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrImageNotFound
	}
	if image.OwnerID != actor.ID {
		return nil, ErrForbidden
	}

	if err := s.images.UpdateTitle(imageID, title); err != nil {
		return nil, err
	}
	image.Title = title
	return image, nil
}

// Delete is allowed for the owner, and for admins and moderators acting as
// content moderation. The metadata row is the source of truth: it goes first,
// and a failed object removal is only logged.
func (s *ImageService) Delete(ctx context.Context, imageID uint, actor Actor) error {
	image, err := s.images.GetByID(imageID)
	if err != nil {
		return err
	}
	if image == nil {
		return ErrImageNotFound
	}
	if image.OwnerID != actor.ID && !actor.canModerate() {
		return ErrForbidden
	}

	if err := s.images.Delete(imageID); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, image.Path); err != nil {
		log.Printf("delete stored object %s failed: %v", image.Path, err)
	}
	return nil
}

// Download returns the object stream plus the metadata the transport needs
// for Content-Type and the download filename.
func (s *ImageService) Download(ctx context.Context, imageID uint) (io.ReadCloser, *model.Image, error) {
	image, err := s.images.GetByID(imageID)
	if err != nil {
		return nil, nil, err
	}
	if image == nil {
		return nil, nil, ErrImageNotFound
	}

	rc, err := s.storage.Read(ctx, image.Path)
	if err != nil {
		return nil, nil, err
	}
	return rc, image, nil
}

func (s *ImageService) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
