package transform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lacuna/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(common.TransformServiceConfig{URL: srv.URL, TimeoutMs: 5000})
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClient_TransformToText(t *testing.T) {
	t.Run("uploads the file as multipart", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "/transform", r.URL.Path)
			assert.Equal(t, "5000", r.URL.Query().Get("timeout"))
			assert.Equal(t, "application/pdf", r.FormValue("sourceMimetype"))
			assert.Equal(t, "text/plain", r.FormValue("targetMimetype"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "report.pdf", header.Filename)

			fmt.Fprint(w, "extracted text")
		}))

		text, err := c.TransformToText(context.Background(), writeTempFile(t, "%PDF-1.4"), "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "extracted text", text)
	})

	t.Run("engine failure surfaces status and body", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unsupported source", http.StatusBadRequest)
		}))

		_, err := c.TransformToText(context.Background(), writeTempFile(t, "junk"), "application/pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
		assert.Contains(t, err.Error(), "unsupported source")
	})

	t.Run("missing file is an error", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		_, err := c.TransformToText(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "application/pdf")
		assert.Error(t, err)
	})
}

func TestClient_IsSupported(t *testing.T) {
	configJSON := `{
		"transformers": [{
			"supportedSourceAndTargetList": [
				{"sourceMediaType": "application/pdf", "targetMediaType": "text/plain"},
				{"sourceMediaType": "image/png", "targetMediaType": "image/jpeg"}
			]
		}]
	}`

	t.Run("only source to plain text counts", func(t *testing.T) {
		var configCalls int
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transform/config", r.URL.Path)
			configCalls++
			fmt.Fprint(w, configJSON)
		}))

		ctx := context.Background()
		assert.True(t, c.IsSupported(ctx, "application/pdf"))
		assert.False(t, c.IsSupported(ctx, "image/png"))
		assert.False(t, c.IsSupported(ctx, "application/zip"))
		assert.Equal(t, 1, configCalls, "capability listing is cached")
	})

	t.Run("config failure fails open", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		assert.True(t, c.IsSupported(context.Background(), "application/zip"))
	})
}
