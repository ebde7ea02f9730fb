package models

import "time"

// UserType distinguishes the two sides of the marketplace.
type UserType string

const (
	Farmer UserType = "farmer"
	Buyer  UserType = "buyer"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	return t == Farmer || t == Buyer
}

// User captures the marketplace profile of an authenticated identity.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	UserType  UserType  `json:"user_type"`
	Location  string    `json:"location,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFarmer reports whether the user may list products.
func (u User) IsFarmer() bool {
	return u.UserType == Farmer
}

// ProfileFields are the caller-supplied columns of a new profile row.
type ProfileFields struct {
	FullName  string   `json:"full_name,omitempty"`
	UserType  UserType `json:"user_type"`
	Location  string   `json:"location,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Phone     string   `json:"phone,omitempty"`
}

// ProfileUpdate is a partial profile write. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty"`
	Location  *string `json:"location,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// Empty reports whether the update carries no fields.
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Location == nil && p.AvatarURL == nil && p.Phone == nil
}

// Apply merges the set fields into u and returns the result.
func (p ProfileUpdate) Apply(u User) User {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	return u
}
