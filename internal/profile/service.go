package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const minUsernameLength = 3

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Service manages streamer profiles.
type Service struct {
	repo Repository
}

// NewService creates a new profile service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register binds a new profile to wallet.
func (s *Service) Register(ctx context.Context, wallet common.Address, in RegisterInput) (Profile, error) {
	username := strings.TrimSpace(in.Username)
	display := strings.TrimSpace(in.DisplayName)
	if username == "" || display == "" {
		return Profile{}, fmt.Errorf("%w: username and display name are required", ErrInvalidProfile)
	}
	if err := ValidateUsername(username); err != nil {
		return Profile{}, err
	}

	p := Profile{
		ID:            uuid.New().String(),
		WalletAddress: wallet.Hex(),
		Username:      username,
		DisplayName:   display,
		AvatarURL:     strings.TrimSpace(in.AvatarURL),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ValidateUsername enforces lowercase letters, digits and underscores, at least three long.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLength {
		return fmt.Errorf("%w: username must be at least %d characters", ErrInvalidProfile, minUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username may only contain lowercase letters, digits and underscores", ErrInvalidProfile)
	}
	return nil
}

// UsernameAvailable reports whether nobody holds username, ignoring case.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	default:
		return false, nil
	}
}

// ByWallet looks a profile up by wallet address.
func (s *Service) ByWallet(ctx context.Context, wallet string) (Profile, error) {
	return s.repo.FindByWallet(ctx, wallet)
}

// ByUsername looks a profile up by username.
func (s *Service) ByUsername(ctx context.Context, username string) (Profile, error) {
	return s.repo.FindByUsername(ctx, username)
}
