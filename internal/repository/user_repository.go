package repository

import (
	"errors"
	"fmt"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"photoshare/internal/model"
)

// ErrDuplicateEmail is returned by Create when the unique email index rejects
// the row. The index, not any pre-check, is the authority on duplicates: two
// concurrent registrations both pass a lookup, only one survives the insert.
var ErrDuplicateEmail = errors.New("email already taken")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldrv.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by email failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

// SetRefreshToken unconditionally replaces the stored refresh token hash,
// used at login when no previous session needs to be honored.
func (r *UserRepository) SetRefreshToken(userID uint, hash string) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("refresh_token_hash", hash).Error; err != nil {
		return fmt.Errorf("set refresh token failed: %w", err)
	}
	return nil
}

// RotateRefreshToken swaps oldHash for newHash in a single conditional UPDATE.
// It reports false when oldHash no longer matches the stored value, which is
// how reuse of a superseded refresh token is detected.
func (r *UserRepository) RotateRefreshToken(userID uint, oldHash, newHash string) (bool, error) {
	res := r.db.Model(&model.User{}).
		Where("id = ? AND refresh_token_hash = ?", userID, oldHash).
		Update("refresh_token_hash", newHash)
	if res.Error != nil {
		return false, fmt.Errorf("rotate refresh token failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) ClearRefreshToken(userID uint) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("refresh_token_hash", "").Error; err != nil {
		return fmt.Errorf("clear refresh token failed: %w", err)
	}
	return nil
}

func (r *UserRepository) Confirm(userID uint) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("confirmed", true).Error; err != nil {
		return fmt.Errorf("confirm user failed: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash and drops the active session in
// the same statement, so a reset always forces re-login everywhere.
func (r *UserRepository) UpdatePassword(userID uint, passwordHash string) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash":      passwordHash,
			"refresh_token_hash": "",
		}).Error; err != nil {
		return fmt.Errorf("update password failed: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateAvatar(userID uint, avatar string) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("avatar", avatar).Error; err != nil {
		return fmt.Errorf("update avatar failed: %w", err)
	}
	return nil
}
