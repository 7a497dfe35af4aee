package account

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

// Role is the closed set of portal roles. The zero value is not a valid Role.
type Role int

const (
	RoleStudent Role = iota + 1
	RoleAdmin
)

// Roles lists every valid Role.
var Roles = []Role{RoleStudent, RoleAdmin}

var errUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch s {
	case "student":
		return RoleStudent, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, errors.Wrapf(errUnknownRole, "%q", s)
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleAdmin:
		return "admin"
	}
	return ""
}

func (r Role) Valid() bool { return r == RoleStudent || r == RoleAdmin }

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.Wrapf(errUnknownRole, "%d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"displayName"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"` // UTC
	UpdatedAt    time.Time  `json:"updatedAt"` // UTC
	LastLogin    *time.Time `json:"lastLogin"` // UTC
}

func (a Account) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Account) IsStudent() bool { return a.Role == RoleStudent }

// HasPassword reports whether the account can sign in with a password.
// Admin accounts provisioned through OTP sign-in have none.
func (a Account) HasPassword() bool { return a.PasswordHash != "" }

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"max=120"`
	Role        Role   `json:"role" validate:"validrole"`
	Password    string `json:"password"`
}

func (na *NewAccount) Clean() {
	na.Email = core.NormalizeEmail(na.Email)
	na.DisplayName = core.CleanString(na.DisplayName)
}

// PasswordUpdate is the admin request to replace a student's password.
type PasswordUpdate struct {
	StudentID   string `json:"studentId"`
	NewPassword string `json:"newPassword"`
}

func (a Account) LogPerson() (id, name, email string) { return a.ID, a.DisplayName, a.Email }
