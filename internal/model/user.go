package model

import "time"

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:64;not null" json:"username"`
	// Email is stored lower-cased so the unique index is effectively
	// case-insensitive.
	Email        string `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         string `gorm:"size:16;not null;default:user" json:"role"`
	Avatar       string `gorm:"size:255" json:"avatar"`
	// RefreshTokenHash holds the SHA-256 of the active refresh token, or the
	// empty string when the user has no session.
	RefreshTokenHash string    `gorm:"size:64;index" json:"-"`
	Confirmed        bool      `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CanModerate reports whether the user may act on content they do not own.
func (u *User) CanModerate() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}
