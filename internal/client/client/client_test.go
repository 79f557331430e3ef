package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *APIClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewAPIClient(ts.URL+"/", 5*time.Second)
}

func TestAPIClient_LoginSendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["identifier"])
		assert.Equal(t, "pw", body["password"])
		_, _ = io.WriteString(w, `{"token":"tok","username":"alice","expires_at":"2030-01-01T00:00:00Z"}`)
	})

	s, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, 2030, s.ExpiresAt.Year())
}

func TestAPIClient_ErrorsUnwrapToSentinels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":"please verify your email first"}`)
		case "/api/purchases":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"something new"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	ctx := context.Background()

	_, err := c.Login(ctx, "bob", "pw")
	assert.ErrorIs(t, err, common.ErrNotVerified)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	_, err = c.Buy(ctx, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Catalog(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "server returned 502", apiErr.Error())
}

func TestAPIClient_BearerTokenAndLogout(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	c.SetToken("tok")

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, "Bearer tok", auth)
}

func TestAPIClient_Download(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download/7", r.URL.Path)
		if r.URL.Query().Get("ref") != "ref 1" {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = io.WriteString(w, `{"error":"payment not verified"}`)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="moon.pdf"`)
		_, _ = io.WriteString(w, "%PDF")
	})
	ctx := context.Background()

	var buf bytes.Buffer
	name, err := c.Download(ctx, 7, "ref 1", &buf)
	require.NoError(t, err)
	assert.Equal(t, "moon.pdf", name)
	assert.Equal(t, "%PDF", buf.String())

	_, err = c.Download(ctx, 7, "other", &buf)
	assert.ErrorIs(t, err, common.ErrPaymentNotConfirmed)
}

func TestAPIClient_SubmitStreamsMultipart(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.png")
	file := filepath.Join(dir, "book.pdf")
	require.NoError(t, os.WriteFile(cover, []byte("PNG"), 0o600))
	require.NoError(t, os.WriteFile(file, []byte("%PDF"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "Moon", r.FormValue("title"))
		assert.Equal(t, "500", r.FormValue("price"))
		assert.Equal(t, "sub-1", r.FormValue("ref"))
		if _, hdr, err := r.FormFile("file"); assert.NoError(t, err) {
			assert.Equal(t, "book.pdf", hdr.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":3,"title":"Moon","price":500}`)
	})

	item, err := c.Submit(context.Background(), Submission{
		Title: "Moon", Price: 500, Reference: "sub-1", CoverPath: cover, FilePath: file,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.ID)

	_, err = c.Submit(context.Background(), Submission{Title: "x", CoverPath: filepath.Join(dir, "missing"), FilePath: file})
	assert.Error(t, err)
}

func TestAPIClient_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewAPIClient(url, time.Second)
	_, err := c.Catalog(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}
