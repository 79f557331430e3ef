package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/client/client"
	"github.com/dmitrijs2005/comicvault/internal/client/config"
	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	server   string
	token    string
	register []string
	loginErr error
	logouts  int
	items    []client.CatalogItem
	submits  []client.Submission
}

func (f *fakeAPI) SetToken(t string) { f.token = t }

func (f *fakeAPI) Register(_ context.Context, username, password, email, ref string) error {
	f.register = []string{username, password, email, ref}
	return nil
}

func (f *fakeAPI) Verify(_ context.Context, token string) (string, error) {
	if token != "good" {
		return "", common.ErrTokenInvalid
	}
	return "alice", nil
}

func (f *fakeAPI) Login(_ context.Context, id, pw string) (*client.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.Session{Token: "tok-" + id, Username: id, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logouts++
	return nil
}

func (f *fakeAPI) Catalog(context.Context) ([]client.CatalogItem, error) { return f.items, nil }

func (f *fakeAPI) Buy(_ context.Context, id int64) (*client.Purchase, error) {
	return &client.Purchase{AuthorizationURL: "https://pay.test/abc", Reference: "abc"}, nil
}

func (f *fakeAPI) Download(_ context.Context, id int64, ref string, w io.Writer) (string, error) {
	if ref != "abc" {
		return "", common.ErrPaymentNotConfirmed
	}
	_, err := io.WriteString(w, "%PDF")
	return "moon.pdf", err
}

func (f *fakeAPI) Submit(_ context.Context, s client.Submission) (*client.CatalogItem, error) {
	f.submits = append(f.submits, s)
	return &client.CatalogItem{ID: 9, Title: s.Title}, nil
}

type harness struct {
	app *App
	api *fakeAPI
	out *bytes.Buffer
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.TokenFile = filepath.Join(t.TempDir(), "cv", "session")

	api := &fakeAPI{}
	out := &bytes.Buffer{}
	app := NewApp(cfg)
	app.out = out
	app.reader = bufio.NewReader(strings.NewReader(stdin))
	app.newAPI = func(server string) API {
		api.server = server
		return api
	}

	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }
	t.Cleanup(func() { readPassword = old })

	return &harness{app: app, api: api, out: out}
}

func (h *harness) run(args ...string) error {
	return h.app.Run(context.Background(), args)
}

func TestRegister_PromptsForMissingValues(t *testing.T) {
	h := newHarness(t, "alice\nalice@mail.test\n")

	require.NoError(t, h.run("register", "--ref", "reg-1"))
	assert.Equal(t, []string{"alice", "pw", "alice@mail.test", "reg-1"}, h.api.register)
	assert.Contains(t, h.out.String(), "Check alice@mail.test")
	assert.Equal(t, "http://127.0.0.1:5000", h.api.server)
}

func TestLoginLogout_PersistsToken(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("login", "alice", "--server", "http://shop.test"))
	assert.Equal(t, "http://shop.test", h.api.server)
	tok, err := h.app.tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-alice", tok)

	require.NoError(t, h.run("catalog"))
	assert.Equal(t, "tok-alice", h.api.token)

	require.NoError(t, h.run("logout"))
	assert.Equal(t, 1, h.api.logouts)
	tok, err = h.app.tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestLogin_Failure(t *testing.T) {
	h := newHarness(t, "")
	h.api.loginErr = common.ErrNotVerified

	err := h.run("login", "bob")
	assert.ErrorIs(t, err, common.ErrNotVerified)
	tok, _ := h.app.tokens.Load()
	assert.Empty(t, tok)
}

func TestVerify(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run("verify", "good"))
	assert.Contains(t, h.out.String(), "Verified alice")

	assert.ErrorIs(t, h.run("verify", "bad"), common.ErrTokenInvalid)
	assert.Error(t, h.run("verify"))
}

func TestCatalog_Table(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run("catalog"))
	assert.Contains(t, h.out.String(), "empty")

	h.out.Reset()
	h.api.items = []client.CatalogItem{{ID: 1, Title: "Moon Knight", Price: 500, SubmittedBy: "alice"}}
	require.NoError(t, h.run("catalog"))
	assert.Contains(t, h.out.String(), "Moon Knight")
	assert.Contains(t, h.out.String(), "TITLE")
}

func TestBuyAndDownload(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run("buy", "1"))
	assert.Contains(t, h.out.String(), "https://pay.test/abc")
	assert.Contains(t, h.out.String(), "--ref abc")

	dest := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, h.run("download", "1", "--ref", "abc", "-o", dest))
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(b))

	other := filepath.Join(t.TempDir(), "x.pdf")
	assert.ErrorIs(t, h.run("download", "1", "--ref", "nope", "-o", other), common.ErrPaymentNotConfirmed)
	_, err = os.Stat(other)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(filepath.Dir(other))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be removed")

	assert.Error(t, h.run("download", "1"))
	assert.Error(t, h.run("buy", "zero"))
}

func TestSubmit(t *testing.T) {
	h := newHarness(t, "")
	assert.Error(t, h.run("submit", "--title", "Moon"))

	require.NoError(t, h.run("submit", "--title", "Moon", "--price", "5", "--cover", "c.png", "--file", "f.pdf", "--ref", "s1"))
	require.Len(t, h.api.submits, 1)
	assert.Equal(t, client.Submission{Title: "Moon", Price: 5, Reference: "s1", CoverPath: "c.png", FilePath: "f.pdf"}, h.api.submits[0])
	assert.Contains(t, h.out.String(), "item 9")
}

func TestTokenStore(t *testing.T) {
	s := NewTokenStore(filepath.Join(t.TempDir(), "a", "b", "session"))

	tok, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save("t1"))
	info, err := os.Stat(s.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
}
