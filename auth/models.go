package auth

import (
	"time"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleMember is the role every registered user gets
	RoleMember UserRole = "member"
	// RoleAdmin can manage other users
	RoleAdmin UserRole = "admin"
)

// UserStatus is the lifecycle status of an account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDisabled  UserStatus = "disabled"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Role           UserRole   `bun:"user_role,notnull" json:"role"`
	Status         UserStatus `bun:"status,notnull" json:"status"`
	DisplayName    string     `bun:"display_name" json:"displayName,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email"`
	PhotoURL       string     `bun:"photo_url" json:"photoURL,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	EmailVerified  bool       `bun:"is_email_verified" json:"emailVerified"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedInAt,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// EnsureStatus defaults an empty status to active
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// Record returns the public session record of the user
func (u *User) Record() authstate.Record {
	return authstate.Record{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
}

// Identity returns the user as an Identity
func (u *User) Identity() Identity {
	return authIdentity{
		id:          u.ID.String(),
		email:       u.Email,
		displayName: u.DisplayName,
		photoURL:    u.PhotoURL,
		role:        u.Role,
		status:      u.Status,
	}
}

func statusAuthError(status UserStatus) error {
	switch status {
	case UserStatusSuspended:
		return ErrUserSuspended
	case UserStatusDisabled:
		return ErrUserDisabled
	default:
		return nil
	}
}

type authIdentity struct {
	id          string
	email       string
	displayName string
	photoURL    string
	role        string
	status      UserStatus
}

func (a authIdentity) ID() string          { return a.id }
func (a authIdentity) Email() string       { return a.email }
func (a authIdentity) DisplayName() string { return a.displayName }
func (a authIdentity) PhotoURL() string    { return a.photoURL }
func (a authIdentity) Role() string        { return a.role }

// Status returns the account status, active when unset
func (a authIdentity) Status() UserStatus {
	if a.status == "" {
		return UserStatusActive
	}
	return a.status
}

var _ Identity = authIdentity{}

// RecordFromIdentity maps an Identity to the public session record
func RecordFromIdentity(identity Identity) authstate.Record {
	return authstate.Record{
		ID:          identity.ID(),
		Email:       identity.Email(),
		DisplayName: identity.DisplayName(),
		PhotoURL:    identity.PhotoURL(),
	}
}
