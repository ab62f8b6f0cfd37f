package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func (w *brokenWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *brokenWriter) WriteHeader(status int) { w.status = status }

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestWriteJSON_LogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	r := httptest.NewRequest(http.MethodGet, "/accounts/alice.near/balances/NEAR/history", nil)
	r = r.WithContext(logger.WithContext(r.Context()))
	w := &brokenWriter{}

	writeJSON(w, r, http.StatusOK, map[string]string{"ok": "yes"})

	assert.Equal(t, http.StatusOK, w.status)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, buf.String(), `"message":"write response"`)
	assert.Contains(t, buf.String(), "connection reset by peer")
	assert.Contains(t, buf.String(), `"level":"debug"`)
}
