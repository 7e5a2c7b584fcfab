package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"examtrack-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
	"github.com/google/uuid"
)

type couchBlob struct {
	ID        string          `json:"_id"`
	Rev       string          `json:"_rev,omitempty"`
	Type      string          `json:"type"`
	Owner     string          `json:"owner"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type couchBlobRepository struct {
	client *kivik.Client
	dbName string
}

// NewCouchBlobRepository keeps each payload in its own CouchDB document. The
// credential is stored as a fingerprint so one database can serve several owners.
func NewCouchBlobRepository(client *kivik.Client, dbName string) BlobRepository {
	return &couchBlobRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *couchBlobRepository) Fetch(ctx context.Context, credential, id string) (*RemoteBlob, error) {
	db := r.client.DB(r.dbName)

	var doc couchBlob
	if err := db.Get(ctx, blobDocID(id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to fetch blob: %w", err)
	}

	if doc.Owner != fingerprint(credential) {
		return nil, fmt.Errorf("%w: blob %s belongs to another credential", ErrUnauthorized, id)
	}

	payload, err := DecodePayload(doc.Payload)
	if err != nil {
		return nil, err
	}

	return &RemoteBlob{
		ID:             id,
		Payload:        payload,
		ModifiedMarker: doc.Rev,
	}, nil
}

func (r *couchBlobRepository) Upload(ctx context.Context, credential, id string, payload *domain.SyncPayload) (*BlobRef, error) {
	db := r.client.DB(r.dbName)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	doc := couchBlob{
		Type:      "sync_blob",
		Owner:     fingerprint(credential),
		Payload:   raw,
		UpdatedAt: time.Now().UTC(),
	}

	if id == "" {
		id = uuid.New().String()
	} else {
		var existing couchBlob
		err := db.Get(ctx, blobDocID(id)).ScanDoc(&existing)
		switch {
		case kivik.HTTPStatus(err) == http.StatusNotFound:
			return nil, ErrBlobNotFound
		case err != nil:
			return nil, fmt.Errorf("failed to fetch existing blob for update: %w", err)
		case existing.Owner != doc.Owner:
			return nil, fmt.Errorf("%w: blob %s belongs to another credential", ErrUnauthorized, id)
		}
		doc.Rev = existing.Rev
	}
	doc.ID = blobDocID(id)

	rev, err := db.Put(ctx, doc.ID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}

	return &BlobRef{
		ID:             id,
		ModifiedMarker: rev,
	}, nil
}

func blobDocID(id string) string {
	return fmt.Sprintf("sync_blob:%s", id)
}

func fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
