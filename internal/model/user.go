package model

import (
	"strings"

	"gorm.io/gorm"
)

// Role is the single authoritative role column. Every authorization decision
// reads this field; there is no secondary profile table or email fallback.
type Role string

const (
	RoleAgent  Role = "agent"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Role     Role   `json:"role" gorm:"not null;default:'seller'"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	CompanyName string `json:"company_name"`
	Avatar      string `json:"avatar"`

	// Verified accounts may publish listings; admins flip this.
	IsVerified bool `json:"is_verified" gorm:"default:false"`

	Properties []Property `json:"-" gorm:"foreignKey:AgentID"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanList reports whether the account may create listings.
func (u *User) CanList() bool {
	return u.IsVerified && (u.Role == RoleAgent || u.Role == RoleSeller)
}

func (u *User) PublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":           u.ID,
		"email":        u.Email,
		"role":         u.Role,
		"full_name":    u.FullName(),
		"phone_number": u.PhoneNumber,
		"company_name": u.CompanyName,
		"avatar":       u.Avatar,
		"is_verified":  u.IsVerified,
	}
}
