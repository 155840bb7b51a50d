package app

import (
	"bytes"
	"context"
	"io"
	"time"

	"photoshare/internal/model"
	"photoshare/internal/platform/rabbitmq"
	"photoshare/internal/repository"
)

// In-memory collaborators for the service tests. They implement the same
// store interfaces the real repositories do, with just enough behavior to
// exercise the orchestration logic.

type fakeUserStore struct {
	users     map[uint]*model.User
	nextID    uint
	createErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint]*model.User{}, nextID: 1}
}

func (s *fakeUserStore) Create(user *model.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = s.nextID
	s.nextID++
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeUserStore) GetByEmail(email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) GetByID(id uint) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (s *fakeUserStore) SetRefreshToken(userID uint, hash string) error {
	if u, ok := s.users[userID]; ok {
		u.RefreshTokenHash = hash
	}
	return nil
}

func (s *fakeUserStore) RotateRefreshToken(userID uint, oldHash, newHash string) (bool, error) {
	u, ok := s.users[userID]
	if !ok || u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = newHash
	return true, nil
}

func (s *fakeUserStore) ClearRefreshToken(userID uint) error {
	if u, ok := s.users[userID]; ok {
		u.RefreshTokenHash = ""
	}
	return nil
}

func (s *fakeUserStore) Confirm(userID uint) error {
	if u, ok := s.users[userID]; ok {
		u.Confirmed = true
	}
	return nil
}

func (s *fakeUserStore) UpdatePassword(userID uint, passwordHash string) error {
	if u, ok := s.users[userID]; ok {
		u.PasswordHash = passwordHash
		u.RefreshTokenHash = ""
	}
	return nil
}

func (s *fakeUserStore) UpdateAvatar(userID uint, avatar string) error {
	if u, ok := s.users[userID]; ok {
		u.Avatar = avatar
	}
	return nil
}

type fakeRevoker struct {
	revoked map[string]time.Duration
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: map[string]time.Duration{}}
}

func (r *fakeRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	r.revoked[jti] = ttl
	return nil
}

func (r *fakeRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok := r.revoked[jti]
	return ok, nil
}

type fakePublisher struct {
	jobs []rabbitmq.EmailJob
}

func (p *fakePublisher) Publish(ctx context.Context, job rabbitmq.EmailJob) error {
	p.jobs = append(p.jobs, job)
	return nil
}

type fakeStorage struct {
	objects  map[string][]byte
	deleted  []string
	writeErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Write(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[objectName] = data
	return nil
}

func (s *fakeStorage) Read(ctx context.Context, objectName string) (io.ReadCloser, error) {
	data, ok := s.objects[objectName]
	if !ok {
		return nil, ErrImageNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, objectName string) error {
	delete(s.objects, objectName)
	s.deleted = append(s.deleted, objectName)
	return nil
}

type fakeImageStore struct {
	images    map[uint]*model.Image
	nextID    uint
	createErr error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{images: map[uint]*model.Image{}, nextID: 1}
}

func (s *fakeImageStore) Create(image *model.Image, tagName string) error {
	if s.createErr != nil {
		return s.createErr
	}
	image.ID = s.nextID
	s.nextID++
	if tagName != "" {
		image.Tags = []model.Tag{{ID: 1, Name: tagName}}
		image.CountTags = 1
	}
	clone := *image
	s.images[image.ID] = &clone
	return nil
}

func (s *fakeImageStore) GetByID(id uint) (*model.Image, error) {
	img, ok := s.images[id]
	if !ok {
		return nil, nil
	}
	clone := *img
	return &clone, nil
}

func (s *fakeImageStore) ListAll(limit, offset int) ([]model.Image, error) {
	return s.page(func(*model.Image) bool { return true }, limit, offset), nil
}

func (s *fakeImageStore) ListByOwner(ownerID uint, limit, offset int) ([]model.Image, error) {
	return s.page(func(img *model.Image) bool { return img.OwnerID == ownerID }, limit, offset), nil
}

func (s *fakeImageStore) ListByTag(tagName string, limit, offset int) ([]model.Image, error) {
	return s.page(func(img *model.Image) bool {
		for _, tag := range img.Tags {
			if tag.Name == tagName {
				return true
			}
		}
		return false
	}, limit, offset), nil
}

func (s *fakeImageStore) page(match func(*model.Image) bool, limit, offset int) []model.Image {
	out := []model.Image{}
	skipped := 0
	for id := uint(1); id < s.nextID; id++ {
		img, ok := s.images[id]
		if !ok || !match(img) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, *img)
	}
	return out
}

func (s *fakeImageStore) UpdateTitle(id uint, title string) error {
	if img, ok := s.images[id]; ok {
		img.Title = title
	}
	return nil
}

func (s *fakeImageStore) AttachTag(imageID uint, tagName string, maxTags int) (*model.Image, error) {
	img, ok := s.images[imageID]
	if !ok {
		return nil, nil
	}
	for _, tag := range img.Tags {
		if tag.Name == tagName {
			clone := *img
			return &clone, nil
		}
	}
	if len(img.Tags) >= maxTags {
		return nil, repository.ErrTagLimitReached
	}
	img.Tags = append(img.Tags, model.Tag{ID: uint(len(img.Tags) + 1), Name: tagName})
	img.CountTags = len(img.Tags)
	clone := *img
	return &clone, nil
}

func (s *fakeImageStore) Delete(imageID uint) error {
	delete(s.images, imageID)
	return nil
}

type fakeCommentStore struct {
	comments []model.Comment
	nextID   uint
}

func (s *fakeCommentStore) Create(comment *model.Comment) error {
	s.nextID++
	comment.ID = s.nextID
	s.comments = append(s.comments, *comment)
	return nil
}

func (s *fakeCommentStore) ListByImage(imageID uint, limit, offset int) ([]model.Comment, error) {
	out := []model.Comment{}
	skipped := 0
	for _, c := range s.comments {
		if c.ImageID != imageID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out, nil
}
