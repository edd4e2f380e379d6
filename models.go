package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleMember is the default role new signups receive
	RoleMember UserRole = "member"
	// RoleAdmin is an administrative role
	RoleAdmin UserRole = "admin"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	EmailValidated bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// VerificationStatus reports where the account sits in the verification
// lifecycle. Verified is terminal.
func (u *User) VerificationStatus() VerificationState {
	if u != nil && u.EmailValidated {
		return StateVerified
	}
	return StateUnverified
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerificationToken is the single-use email confirmation token. Consumed
// tokens are kept (consumed_at set) for audit; replaced tokens are soft
// deleted so only one live token exists per user.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Value         string     `bun:"value,notnull,unique" json:"-"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	IssuedAt      *time.Time `bun:"issued_at,nullzero,default:current_timestamp" json:"issued_at,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Consumed reports whether the token was already used.
func (t *VerificationToken) Consumed() bool {
	return t != nil && t.ConsumedAt != nil
}

// ExpiredAt reports whether the token is past its expiry at the given time.
func (t *VerificationToken) ExpiredAt(now time.Time) bool {
	if t == nil || t.ExpiresAt == nil {
		return true
	}
	return now.After(*t.ExpiresAt)
}

// MarkConsumed will create an update record flagging the token as used.
func MarkConsumed(id uuid.UUID, at time.Time) *VerificationToken {
	t := &VerificationToken{}
	t.ID = id
	t.ConsumedAt = &at
	return t
}
