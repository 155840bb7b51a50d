package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"photoshare/internal/model"
	"photoshare/internal/pkg/token"
	"photoshare/internal/platform/rabbitmq"
	"photoshare/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrStaleToken        = errors.New("refresh token is stale")
	ErrAlreadyConfirmed  = errors.New("email already confirmed")
	ErrUserNotFound      = errors.New("user not found")
)

// UserStore is the credential store consumed by the auth orchestrator.
type UserStore interface {
	Create(user *model.User) error
	GetByEmail(email string) (*model.User, error)
	GetByID(id uint) (*model.User, error)
	SetRefreshToken(userID uint, hash string) error
	RotateRefreshToken(userID uint, oldHash, newHash string) (bool, error)
	ClearRefreshToken(userID uint) error
	Confirm(userID uint) error
	UpdatePassword(userID uint, passwordHash string) error
	UpdateAvatar(userID uint, avatar string) error
}

// TokenRevoker is the revocation cache: it only records revoked tokens, it
// never vouches for valid ones.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// EmailJobPublisher hands outbound mail to the async delivery worker.
type EmailJobPublisher interface {
	Publish(ctx context.Context, job rabbitmq.EmailJob) error
}

type AuthService struct {
	users      UserStore
	tokens     *token.Service
	revoked    TokenRevoker
	emails     EmailJobPublisher
	storage    FileStorage
	accessTTL  time.Duration
	refreshTTL time.Duration
	actionTTL  time.Duration
	// requireConfirmed gates login on a confirmed email address.
	requireConfirmed bool
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func NewAuthService(
	users UserStore,
	tokens *token.Service,
	revoked TokenRevoker,
	emails EmailJobPublisher,
	storage FileStorage,
	accessTTL, refreshTTL, actionTTL time.Duration,
	requireConfirmed bool,
) *AuthService {
	return &AuthService{
		users:            users,
		tokens:           tokens,
		revoked:          revoked,
		emails:           emails,
		storage:          storage,
		accessTTL:        accessTTL,
		refreshTTL:       refreshTTL,
		actionTTL:        actionTTL,
		requireConfirmed: requireConfirmed,
	}
}

// Register creates an unconfirmed account and queues a confirmation mail.
// Mail delivery is fire-and-forget: a publish failure is logged, never fatal
// to the registration itself.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	password := strings.TrimSpace(input.Password)

	if username == "" || email == "" || len(password) < 6 {
		return nil, ErrInvalidInput
	}

	existing, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	}
	if err := s.users.Create(user); err != nil {
		// The unique index catches the race the lookup above cannot.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.sendActionMail(ctx, user, rabbitmq.EmailKindConfirm, token.PurposeEmailConfirm)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidInput
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredential
	}
	if s.requireConfirmed && !user.Confirmed {
		return nil, nil, ErrEmailNotConfirmed
	}

	pair, refreshHash, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.SetRefreshToken(user.ID, refreshHash); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates the refresh token atomically. Presenting a token that was
// already rotated out is treated as a compromise signal: the whole session is
// invalidated before ErrStaleToken is returned.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(rawRefresh, token.PurposeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	pair, newHash, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	rotated, err := s.users.RotateRefreshToken(user.ID, hashToken(rawRefresh), newHash)
	if err != nil {
		return nil, err
	}
	if !rotated {
		if err := s.users.ClearRefreshToken(user.ID); err != nil {
			log.Printf("clear session after refresh reuse failed: %v", err)
		}
		return nil, ErrStaleToken
	}
	return pair, nil
}

// Logout revokes the presented access token until its natural expiry and
// drops the stored refresh token.
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	return s.users.ClearRefreshToken(claims.UserID)
}

// ConfirmEmail flips the confirmed flag. Confirming twice fails with
// ErrAlreadyConfirmed rather than succeeding silently.
func (s *AuthService) ConfirmEmail(rawAction string) (*model.User, error) {
	claims, err := s.tokens.Verify(rawAction, token.PurposeEmailConfirm)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Confirmed {
		return nil, ErrAlreadyConfirmed
	}

	if err := s.users.Confirm(user.ID); err != nil {
		return nil, err
	}
	user.Confirmed = true
	return user, nil
}

// RequestPasswordReset reports success whether or not the address is known,
// so callers cannot probe which emails have accounts. A reset mail is queued
// only for existing accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	s.sendActionMail(ctx, user, rabbitmq.EmailKindPasswordReset, token.PurposePasswordReset)
	return nil
}

// ResetPassword replaces the hash and invalidates the active refresh token,
// forcing re-login everywhere. The action token is single-use: its jti is
// marked revoked for the rest of its lifetime, so a captured reset link cannot
// re-hijack the account after the legitimate reset.
func (s *AuthService) ResetPassword(ctx context.Context, rawAction, newPassword string) (*model.User, error) {
	claims, err := s.verifyResetToken(ctx, rawAction)
	if err != nil {
		return nil, err
	}

	newPassword = strings.TrimSpace(newPassword)
	if len(newPassword) < 6 {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	if err := s.users.UpdatePassword(user.ID, string(hash)); err != nil {
		return nil, err
	}
	if err := s.revoked.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return nil, fmt.Errorf("consume reset token failed: %w", err)
	}
	return user, nil
}

// CheckPasswordReset validates a reset token without consuming it. It backs
// the landing link in the reset mail, so a client can verify the token before
// showing a new-password form.
func (s *AuthService) CheckPasswordReset(ctx context.Context, rawAction string) error {
	_, err := s.verifyResetToken(ctx, rawAction)
	return err
}

// verifyResetToken checks signature, expiry, purpose, and that the token has
// not been spent already.
func (s *AuthService) verifyResetToken(ctx context.Context, rawAction string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(rawAction, token.PurposePasswordReset)
	if err != nil {
		return nil, err
	}
	used, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, token.ErrInvalidToken
	}
	return claims, nil
}

// maxAvatarBytes caps avatar uploads independently of the image upload limit.
const maxAvatarBytes = 2 << 20

// UpdateAvatar validates and stores a new avatar object, then points the user
// record at it. The previous avatar object, if any, is removed best-effort.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID uint, r io.Reader, size int64, filename string) (*model.User, error) {
	if size > maxAvatarBytes {
		return nil, ErrFileTooLarge
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read avatar failed: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, ErrUnsupportedType
	}

	objectPath := "avatars/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	body := io.MultiReader(bytes.NewReader(head), r)
	if err := s.storage.Write(ctx, objectPath, body, size, detected.String()); err != nil {
		return nil, err
	}

	previous := user.Avatar
	if err := s.users.UpdateAvatar(user.ID, objectPath); err != nil {
		return nil, err
	}
	if previous != "" {
		if err := s.storage.Delete(ctx, previous); err != nil {
			log.Printf("delete previous avatar %s failed: %v", previous, err)
		}
	}
	user.Avatar = objectPath
	return user, nil
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.users.GetByID(id)
}

func (s *AuthService) issuePair(user *model.User) (*TokenPair, string, error) {
	access, _, err := s.tokens.Issue(user.ID, user.Email, user.Role, token.PurposeAccess, s.accessTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue access token failed: %w", err)
	}
	refresh, _, err := s.tokens.Issue(user.ID, user.Email, user.Role, token.PurposeRefresh, s.refreshTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue refresh token failed: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, hashToken(refresh), nil
}

func (s *AuthService) sendActionMail(ctx context.Context, user *model.User, kind string, purpose token.Purpose) {
	action, _, err := s.tokens.Issue(user.ID, user.Email, user.Role, purpose, s.actionTTL)
	if err != nil {
		log.Printf("issue %s token failed: %v", kind, err)
		return
	}
	job := rabbitmq.EmailJob{
		Kind:     kind,
		To:       user.Email,
		Username: user.Username,
		Token:    action,
	}
	if err := s.emails.Publish(ctx, job); err != nil {
		log.Printf("queue %s mail for %s failed: %v", kind, user.Email, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashToken stores only a SHA-256 of the refresh token, so database leaks do
// not yield replayable tokens.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
