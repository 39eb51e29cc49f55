package auth

import (
	"github.com/swifteats/swifteats-backend/internal/users"
	"github.com/swifteats/swifteats-backend/pkg/enums"
)

// RegisterRequest onboards a new account. Vendor and rider registrations
// carry the extra profile fields their role requires.
type RegisterRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	FullName string         `json:"full_name" validate:"required"`
	Phone    *string        `json:"phone,omitempty"`
	Role     enums.UserRole `json:"role" validate:"required"`

	// Vendor profile.
	BusinessName *string `json:"business_name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Address      *string `json:"address,omitempty"`

	// Rider profile.
	VehicleType *string `json:"vehicle_type,omitempty"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshRequest rotates an expired access token using its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the replacement token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DeviceTokenRequest registers the push token for the caller's device.
// A blank token clears the stored one.
type DeviceTokenRequest struct {
	DeviceToken string `json:"device_token"`
}
