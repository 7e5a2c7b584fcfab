package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"examtrack-sync/internal/domain"
)

const (
	DefaultGistBaseURL = "https://api.github.com"
	GistFileName       = "examtrack-sync.json"
	gistDescription    = "examtrack study progress"
)

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistDocument struct {
	ID          string              `json:"id,omitempty"`
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	UpdatedAt   string              `json:"updated_at,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

type gistRepo struct {
	baseURL  string
	fileName string
	client   *http.Client
}

// NewGistRepository stores the payload as a single file of a secret gist.
func NewGistRepository(baseURL string, timeout time.Duration) BlobRepository {
	if baseURL == "" {
		baseURL = DefaultGistBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &gistRepo{
		baseURL:  strings.TrimRight(baseURL, "/"),
		fileName: GistFileName,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *gistRepo) Fetch(ctx context.Context, credential, id string) (*RemoteBlob, error) {
	url := fmt.Sprintf("%s/gists/%s", r.baseURL, id)

	resp, err := r.do(ctx, http.MethodGet, url, credential, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrBlobNotFound
	}
	if err := checkStatus(resp, "fetch gist"); err != nil {
		return nil, err
	}

	var doc gistDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode gist: %v", ErrInvalidPayload, err)
	}

	file, ok := doc.Files[r.fileName]
	if !ok {
		return nil, fmt.Errorf("%w: gist has no %s file", ErrInvalidPayload, r.fileName)
	}

	content := []byte(file.Content)
	if file.Truncated && file.RawURL != "" {
		content, err = r.fetchRaw(ctx, credential, file.RawURL)
		if err != nil {
			return nil, err
		}
	}

	payload, err := DecodePayload(content)
	if err != nil {
		return nil, err
	}

	return &RemoteBlob{
		ID:             doc.ID,
		Payload:        payload,
		ModifiedMarker: doc.UpdatedAt,
	}, nil
}

func (r *gistRepo) Upload(ctx context.Context, credential, id string, payload *domain.SyncPayload) (*BlobRef, error) {
	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	doc := gistDocument{
		Description: gistDescription,
		Files: map[string]gistFile{
			r.fileName: {Content: string(content)},
		},
	}

	method := http.MethodPatch
	url := fmt.Sprintf("%s/gists/%s", r.baseURL, id)
	if id == "" {
		public := false
		doc.Public = &public
		method = http.MethodPost
		url = fmt.Sprintf("%s/gists", r.baseURL)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	resp, err := r.do(ctx, method, url, credential, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrBlobNotFound
	}
	if err := checkStatus(resp, "upload gist"); err != nil {
		return nil, err
	}

	var saved gistDocument
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return nil, fmt.Errorf("failed to decode gist response: %w", err)
	}
	if saved.ID == "" {
		saved.ID = id
	}

	return &BlobRef{
		ID:             saved.ID,
		ModifiedMarker: saved.UpdatedAt,
	}, nil
}

func (r *gistRepo) fetchRaw(ctx context.Context, credential, rawURL string) ([]byte, error) {
	resp, err := r.do(ctx, http.MethodGet, rawURL, credential, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "fetch raw gist file"); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (r *gistRepo) do(ctx context.Context, method, url, credential string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+credential)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return r.client.Do(req)
}

func checkStatus(resp *http.Response, action string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: failed to %s: status %d", ErrUnauthorized, action, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("failed to %s: status %d", action, resp.StatusCode)
	}
	return nil
}
