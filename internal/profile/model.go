package profile

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no profile matches the lookup.
	ErrNotFound = errors.New("profile not found")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrWalletTaken is returned when the wallet already has a profile.
	ErrWalletTaken = errors.New("wallet already registered")
	// ErrInvalidProfile wraps registration input errors.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile is a streamer's public page.
type Profile struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RegisterInput is the data a streamer supplies once at registration.
type RegisterInput struct {
	Username    string
	DisplayName string
	AvatarURL   string
}
