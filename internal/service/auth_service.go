package service

import (
	"errors"
	"fmt"
	"time"

	"examtrack-sync/internal/domain"
	"examtrack-sync/pkg/hash"
	"examtrack-sync/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication is not configured")
)

// AuthService guards the local API with a single owner passphrase.
type AuthService struct {
	passphraseHash    string
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
}

// NewAuthService accepts either a bcrypt hash or a plain passphrase, which is
// hashed once here. An empty passphrase disables authentication.
func NewAuthService(passphrase, jwtSecret string, jwtExp, refreshExp time.Duration) (*AuthService, error) {
	s := &AuthService{
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExp,
		refreshExpiration: refreshExp,
	}

	switch {
	case passphrase == "":
	case hash.IsHash(passphrase):
		s.passphraseHash = passphrase
	default:
		hashed, err := hash.Hash(passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to hash passphrase: %w", err)
		}
		s.passphraseHash = hashed
	}

	return s, nil
}

func (s *AuthService) Enabled() bool {
	return s.passphraseHash != ""
}

func (s *AuthService) Login(req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	if err := hash.Compare(s.passphraseHash, req.Passphrase); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := jwt.GenerateToken(domain.OwnerID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(domain.OwnerID, s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) RefreshToken(req *domain.RefreshTokenRequest) (*domain.TokenResponse, error) {
	claims, err := jwt.ValidateKind(req.RefreshToken, s.jwtSecret, jwt.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}

	accessToken, err := jwt.GenerateToken(claims.UserID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateKind(token, s.jwtSecret, jwt.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
