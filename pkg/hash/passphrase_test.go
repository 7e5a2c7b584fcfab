package hash

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashWithCost(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		wantErr    bool
	}{
		{name: "long passphrase", passphrase: "correct horse battery staple"},
		{name: "minimum length", passphrase: "12345678"},
		{name: "too short", passphrase: "1234567", wantErr: true},
		{name: "empty", passphrase: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := HashWithCost(tt.passphrase, bcrypt.MinCost)

			if tt.wantErr {
				if err != ErrTooShort {
					t.Errorf("HashWithCost() error = %v, want ErrTooShort", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("HashWithCost() unexpected error = %v", err)
			}
			if !strings.HasPrefix(hashed, "$2a$04$") {
				t.Errorf("HashWithCost() unexpected format %q", hashed[:7])
			}
			if !IsHash(hashed) {
				t.Error("IsHash() = false for a bcrypt hash")
			}
		})
	}
}

func TestCompare(t *testing.T) {
	passphrase := "revision-weekend"
	hashed, err := HashWithCost(passphrase, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashWithCost() error = %v", err)
	}

	tests := []struct {
		name       string
		passphrase string
		wantErr    bool
	}{
		{name: "match", passphrase: passphrase},
		{name: "wrong", passphrase: "revision-weekday", wantErr: true},
		{name: "case sensitive", passphrase: strings.ToUpper(passphrase), wantErr: true},
		{name: "empty", passphrase: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(hashed, tt.passphrase)
			if tt.wantErr {
				if !Mismatch(err) {
					t.Errorf("Compare() error = %v, want mismatch", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Compare() unexpected error = %v", err)
			}
		})
	}
}

func TestIsHash(t *testing.T) {
	if IsHash("plain passphrase") {
		t.Error("IsHash() = true for plain text")
	}
	if IsHash("") {
		t.Error("IsHash() = true for empty string")
	}
}
