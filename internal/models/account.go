package models

import (
	"strings"
	"time"
)

// UserType distinguishes members, business owners and administrators.
type UserType string

const (
	UserTypeMember        UserType = "member"
	UserTypeBusinessOwner UserType = "business_owner"
	UserTypeChurchAdmin   UserType = "church_admin"
	UserTypeSystemAdmin   UserType = "system_admin"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeMember, UserTypeBusinessOwner, UserTypeChurchAdmin, UserTypeSystemAdmin:
		return true
	}
	return false
}

// Channel is a delivery medium for codes and notifications.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// OneTimeCode is the code slot shared by accounts and pending registrations.
// Only the bcrypt hash of the code is stored.
type OneTimeCode struct {
	CodeHash     string     `gorm:"size:72" json:"-"`
	CodeIssuedAt *time.Time `json:"-"`
	CodeAttempts int        `gorm:"not null;default:0" json:"-"`
	CodeChannel  Channel    `gorm:"size:10" json:"-"`
}

// HasCode reports whether a code is currently set.
func (c OneTimeCode) HasCode() bool {
	return c.CodeHash != "" && c.CodeIssuedAt != nil
}

// Clear empties the slot.
func (c *OneTimeCode) Clear() {
	c.CodeHash = ""
	c.CodeIssuedAt = nil
	c.CodeAttempts = 0
	c.CodeChannel = ""
}

// Account is a verified platform user.
type Account struct {
	BaseModel
	Phone             *string  `gorm:"size:32;uniqueIndex" json:"phone"`
	Email             *string  `gorm:"size:255;uniqueIndex" json:"email"`
	FirstName         string   `gorm:"size:150" json:"first_name"`
	LastName          string   `gorm:"size:150" json:"last_name"`
	PartnershipNumber string   `gorm:"size:50" json:"partnership_number"`
	UserType          UserType `gorm:"size:20;not null" json:"user_type"`
	PhoneVerified     bool     `gorm:"not null" json:"phone_verified"`
	EmailVerified     bool     `gorm:"not null" json:"email_verified"`
	IsVerified        bool     `gorm:"not null" json:"is_verified"`
	IsActive          bool     `gorm:"not null" json:"is_active"`
	OneTimeCode       `gorm:"embedded"`
}

// PhoneNumber returns the phone or an empty string.
func (a Account) PhoneNumber() string {
	return deref(a.Phone)
}

// EmailAddress returns the email or an empty string.
func (a Account) EmailAddress() string {
	return deref(a.Email)
}

// DisplayName joins first and last name.
func (a Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// PendingRegistration holds signup data until the code is verified.
type PendingRegistration struct {
	BaseModel
	Phone             *string `gorm:"size:32;uniqueIndex"`
	Email             *string `gorm:"size:255;uniqueIndex"`
	FirstName         string  `gorm:"size:150"`
	PartnershipNumber string  `gorm:"size:50"`
	Method            string  `gorm:"size:10"`
	OneTimeCode       `gorm:"embedded"`
}

// PhoneNumber returns the phone or an empty string.
func (p PendingRegistration) PhoneNumber() string {
	return deref(p.Phone)
}

// EmailAddress returns the email or an empty string.
func (p PendingRegistration) EmailAddress() string {
	return deref(p.Email)
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
