package service

import (
	"errors"
	"testing"
	"time"

	"examtrack-sync/internal/domain"
	"examtrack-sync/pkg/hash"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	hashed, err := hash.HashWithCost("open sesame", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashWithCost() error = %v", err)
	}
	s, err := NewAuthService(hashed, "test-secret", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewAuthService() error = %v", err)
	}
	return s
}

func TestAuthService_Login(t *testing.T) {
	s := newTestAuthService(t)

	tests := []struct {
		name       string
		passphrase string
		wantErr    error
	}{
		{name: "correct passphrase", passphrase: "open sesame"},
		{name: "wrong passphrase", passphrase: "open barley", wantErr: ErrInvalidCredentials},
		{name: "empty passphrase", passphrase: "", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Login(&domain.LoginRequest{Passphrase: tt.passphrase})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() unexpected error = %v", err)
			}
			if resp.AccessToken == "" || resp.RefreshToken == "" {
				t.Error("Login() returned empty tokens")
			}
			if resp.ExpiresIn != int64((15 * time.Minute).Seconds()) {
				t.Errorf("Login() ExpiresIn = %d", resp.ExpiresIn)
			}

			claims, err := s.ValidateToken(resp.AccessToken)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.UserID != domain.OwnerID {
				t.Errorf("claims.UserID = %q, want %q", claims.UserID, domain.OwnerID)
			}
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	s := newTestAuthService(t)
	login, err := s.Login(&domain.LoginRequest{Passphrase: "open sesame"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	resp, err := s.RefreshToken(&domain.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if _, err := s.ValidateToken(resp.AccessToken); err != nil {
		t.Errorf("refreshed access token rejected: %v", err)
	}

	if _, err := s.RefreshToken(&domain.RefreshTokenRequest{RefreshToken: login.AccessToken}); err == nil {
		t.Error("RefreshToken() accepted an access token")
	}
	if _, err := s.ValidateToken(login.RefreshToken); err == nil {
		t.Error("ValidateToken() accepted a refresh token")
	}
}

func TestAuthService_Disabled(t *testing.T) {
	s, err := NewAuthService("", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewAuthService() error = %v", err)
	}
	if s.Enabled() {
		t.Error("Enabled() = true without a passphrase")
	}
	if _, err := s.Login(&domain.LoginRequest{Passphrase: "anything"}); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("Login() error = %v, want ErrAuthDisabled", err)
	}
}

func TestNewAuthService_ShortPlainPassphrase(t *testing.T) {
	if _, err := NewAuthService("short", "secret", time.Minute, time.Hour); err == nil {
		t.Error("NewAuthService() accepted a passphrase below the minimum length")
	}
}
