// Package models holds the documents persisted by quickmart repositories
// and the identity types handed to the transport layer.
package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// BirthDateLayout is the DD-MM-YYYY format birth dates are stored in.
const BirthDateLayout = "02-01-2006"

const (
	DefaultLanguage = "en"
	DefaultCurrency = "USD"
)

type User struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	UpdatedBy string    `bson:"updated_by,omitempty"`

	Role           Role   `bson:"role"`
	Fullname       string `bson:"fullname"`
	Username       string `bson:"username"`
	Email          string `bson:"email"`
	EmailVerified  bool   `bson:"email_verified"`
	PhoneNumber    string `bson:"phone_number"`
	Gender         Gender `bson:"gender"`
	BirthDate      string `bson:"birth_date"`
	ProfilePicture string `bson:"profile_picture"`
	Language       string `bson:"language"`
	Currency       string `bson:"currency"`

	LastActive time.Time `bson:"last_active"`

	PasswordDigest string `bson:"password"`
}

// Identity is the public view of a user: everything except the password
// digest. It is what token verification hands to handlers and what access
// token claims carry.
type Identity struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	Fullname       string    `json:"fullname"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	EmailVerified  bool      `json:"email_verified"`
	PhoneNumber    string    `json:"phone_number"`
	Gender         Gender    `json:"gender"`
	BirthDate      string    `json:"birth_date"`
	ProfilePicture string    `json:"profile_picture"`
	Language       string    `json:"language"`
	Currency       string    `json:"currency"`
	LastActive     time.Time `json:"last_active"`
}

func (u *User) Identity() *Identity {
	return &Identity{
		ID:             u.ID,
		Role:           u.Role,
		Fullname:       u.Fullname,
		Username:       u.Username,
		Email:          u.Email,
		EmailVerified:  u.EmailVerified,
		PhoneNumber:    u.PhoneNumber,
		Gender:         u.Gender,
		BirthDate:      u.BirthDate,
		ProfilePicture: u.ProfilePicture,
		Language:       u.Language,
		Currency:       u.Currency,
		LastActive:     u.LastActive,
	}
}
