package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SignupBonus is the balance, in minor units, credited at registration
const SignupBonus int64 = 100000

// User is the user model. UsedVerifyToken keeps the consumed verification
// token so a repeated verification with the same link resolves to
// "already verified".
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID  `bun:"id,pk,type:uuid" json:"uid"`
	Username         string     `bun:"username,notnull,unique" json:"username"`
	Email            string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash     string     `bun:"password_hash,notnull" json:"-"`
	Phone            string     `bun:"phone,notnull" json:"phone"`
	Balance          int64      `bun:"balance,notnull" json:"balance"`
	Role             UserRole   `bun:"role,notnull" json:"role"`
	EmailVerified    bool       `bun:"is_email_verified,notnull" json:"isEmailVerified"`
	ResetToken       *string    `bun:"reset_token,unique" json:"-"`
	ResetTokenExpiry *time.Time `bun:"reset_token_expiry" json:"-"`
	EmailVerifyToken *string    `bun:"email_verify_token,unique" json:"-"`
	UsedVerifyToken  *string    `bun:"used_verify_token" json:"-"`
	CreatedAt        time.Time  `bun:"created_at,notnull" json:"createdAt"`
}

// PublicUser is the projection of a User that is safe to return to
// clients. It never carries the password hash or any pending token.
type PublicUser struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Balance   int64     `json:"balance"`
	Phone     string    `json:"phone"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns the client safe projection
func (u *User) Public() PublicUser {
	return PublicUser{
		UID:       u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Balance:   u.Balance,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ResetTokenValid reports whether token matches the pending reset token
// and its expiry is strictly after now.
func (u *User) ResetTokenValid(token string, now time.Time) bool {
	if u.ResetToken == nil || u.ResetTokenExpiry == nil {
		return false
	}
	return *u.ResetToken == token && u.ResetTokenExpiry.After(now)
}

// UserToken is a live session entry
type UserToken struct {
	bun.BaseModel `bun:"table:user_tokens,alias:utk"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Token         string    `bun:"token,notnull,unique" json:"-"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Expiry        time.Time `bun:"expiry,notnull" json:"expiry"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Expired reports whether now is past the entry expiry
func (t *UserToken) Expired(now time.Time) bool {
	return now.After(t.Expiry)
}
