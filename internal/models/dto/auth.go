package dto

import "github.com/hongminglow/farmconnect/internal/models"

type RegisterRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	FullName string          `json:"full_name"`
	UserType models.UserType `json:"user_type"`
	Location string          `json:"location"`
	Phone    string          `json:"phone"`
}

// Fields returns the profile columns carried by the request.
func (r RegisterRequest) Fields() models.ProfileFields {
	return models.ProfileFields{
		FullName: r.FullName,
		UserType: r.UserType,
		Location: r.Location,
		Phone:    r.Phone,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User models.User `json:"user"`
}

type SessionResponse struct {
	State   string       `json:"state"`
	Loading bool         `json:"loading"`
	User    *models.User `json:"user,omitempty"`
}
