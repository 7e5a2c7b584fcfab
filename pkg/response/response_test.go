package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		code    int
		success bool
		errText string
	}{
		{name: "success", write: func(w http.ResponseWriter) { Success(w, map[string]int{"n": 1}) }, code: 200, success: true},
		{name: "created", write: func(w http.ResponseWriter) { Created(w, nil) }, code: 201, success: true},
		{name: "conflict", write: func(w http.ResponseWriter) { Conflict(w, "duplicate") }, code: 409, errText: "duplicate"},
		{name: "bad gateway", write: func(w http.ResponseWriter) { BadGateway(w, "remote down") }, code: 502, errText: "remote down"},
		{name: "json error status", write: func(w http.ResponseWriter) { JSON(w, 400, nil) }, code: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.success, body.Success)
			assert.Equal(t, tt.errText, body.Error)
		})
	}
}
