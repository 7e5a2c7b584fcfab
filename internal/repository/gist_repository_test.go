package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"examtrack-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gistBody(t *testing.T, id string, payload any) []byte {
	t.Helper()
	content, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"id":         id,
		"updated_at": "2024-05-01T10:00:00Z",
		"files": map[string]any{
			GistFileName: map[string]any{"content": string(content)},
		},
	})
	require.NoError(t, err)
	return body
}

func validPayload() *domain.SyncPayload {
	p := domain.NewSyncPayload()
	p.Timestamp = "2024-05-01T10:00:00.000Z"
	p.Progress["q1"] = domain.StatusConfused
	p.ProgressLastModified["q1"] = 200
	return p
}

func TestGistRepository_Fetch(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       func(t *testing.T) []byte
		wantErr    error
	}{
		{
			name:       "valid payload",
			statusCode: http.StatusOK,
			body:       func(t *testing.T) []byte { return gistBody(t, "g1", validPayload()) },
		},
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			wantErr:    ErrBlobNotFound,
		},
		{
			name:       "bad credential",
			statusCode: http.StatusUnauthorized,
			wantErr:    ErrUnauthorized,
		},
		{
			name:       "payload fails validation",
			statusCode: http.StatusOK,
			body: func(t *testing.T) []byte {
				return gistBody(t, "g1", map[string]any{
					"progress":  map[string]string{"q1": "perfect"},
					"version":   2,
					"timestamp": "2024-05-01T10:00:00.000Z",
				})
			},
			wantErr: ErrInvalidPayload,
		},
		{
			name:       "missing file",
			statusCode: http.StatusOK,
			body: func(t *testing.T) []byte {
				return []byte(`{"id":"g1","files":{"other.txt":{"content":"x"}}}`)
			},
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/gists/g1", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				w.WriteHeader(tt.statusCode)
				if tt.body != nil {
					w.Write(tt.body(t))
				}
			}))
			defer server.Close()

			repo := NewGistRepository(server.URL, 0)
			blob, err := repo.Fetch(context.Background(), "secret", "g1")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "g1", blob.ID)
			assert.Equal(t, "2024-05-01T10:00:00Z", blob.ModifiedMarker)
			assert.Equal(t, domain.StatusConfused, blob.Payload.Progress["q1"])
			assert.NotNil(t, blob.Payload.Notes)
		})
	}
}

func TestGistRepository_FetchTruncated(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/raw" {
			json.NewEncoder(w).Encode(validPayload())
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "g1",
			"files": map[string]any{
				GistFileName: map[string]any{"content": "{", "truncated": true, "raw_url": server.URL + "/raw"},
			},
		})
	}))
	defer server.Close()

	blob, err := NewGistRepository(server.URL, 0).Fetch(context.Background(), "secret", "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfused, blob.Payload.Progress["q1"])
}

func TestGistRepository_Upload(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantMethod string
		wantPath   string
	}{
		{name: "create", id: "", wantMethod: http.MethodPost, wantPath: "/gists"},
		{name: "update", id: "g1", wantMethod: http.MethodPatch, wantPath: "/gists/g1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)

				raw, _ := io.ReadAll(r.Body)
				var doc gistDocument
				assert.NoError(t, json.Unmarshal(raw, &doc))
				content := doc.Files[GistFileName].Content
				_, err := DecodePayload([]byte(content))
				assert.NoError(t, err)

				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"id":"g1","updated_at":"2024-05-02T00:00:00Z"}`))
			}))
			defer server.Close()

			ref, err := NewGistRepository(server.URL, 0).Upload(context.Background(), "secret", tt.id, validPayload())
			require.NoError(t, err)
			assert.Equal(t, "g1", ref.ID)
			assert.Equal(t, "2024-05-02T00:00:00Z", ref.ModifiedMarker)
		})
	}
}

func TestGistRepository_UploadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewGistRepository(server.URL, 0).Upload(context.Background(), "secret", "g1", validPayload())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBlobNotFound))
}
