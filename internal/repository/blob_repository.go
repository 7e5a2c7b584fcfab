package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"examtrack-sync/internal/domain"

	"github.com/go-playground/validator/v10"
)

type RemoteBlob struct {
	ID             string
	Payload        *domain.SyncPayload
	ModifiedMarker string
}

type BlobRef struct {
	ID             string
	ModifiedMarker string
}

// BlobRepository is the remote store holding one sync payload per id.
type BlobRepository interface {
	// Fetch returns ErrBlobNotFound when the id no longer resolves and
	// ErrInvalidPayload when the stored document fails validation.
	Fetch(ctx context.Context, credential, id string) (*RemoteBlob, error)
	// Upload creates a new blob when id is empty and updates it otherwise.
	Upload(ctx context.Context, credential, id string, payload *domain.SyncPayload) (*BlobRef, error)
}

var payloadValidator = validator.New()

// DecodePayload parses and validates a payload received from a remote store.
func DecodePayload(data []byte) (*domain.SyncPayload, error) {
	var payload domain.SyncPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := ValidatePayload(&payload); err != nil {
		return nil, err
	}
	payload.EnsureMaps()
	return &payload, nil
}

func ValidatePayload(payload *domain.SyncPayload) error {
	if err := payloadValidator.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
