package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/netx"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

// Unwrap exposes the shared sentinel the message names, so callers can use
// errors.Is(err, common.ErrPaymentNotConfirmed) and friends.
func (e *APIError) Unwrap() error {
	if err, ok := knownErrors[e.Message]; ok {
		return err
	}
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

var knownErrors = func() map[string]error {
	m := map[string]error{}
	for _, err := range []error{
		common.ErrNotVerified, common.ErrPaymentNotConfirmed, common.ErrMissingFields,
		common.ErrInvalidCredentials, common.ErrUnauthenticated, common.ErrTokenInvalid,
		common.ErrAlreadyExists, common.ErrReferenceConsumed, common.ErrItemNotFound,
		common.ErrNotFound, common.ErrUpstreamUnavailable, common.ErrAssetExists,
	} {
		m[err.Error()] = err
	}
	return m
}()

type CatalogItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Price       int64     `json:"price"`
	Cover       string    `json:"cover"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Purchase struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type Submission struct {
	Title     string
	Price     int64
	Reference string
	CoverPath string
	FilePath  string
}

// APIClient talks to the shop's HTTP API.
type APIClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *APIClient) SetToken(token string) {
	c.token = token
}

func (c *APIClient) Register(ctx context.Context, username, password, email, reference string) error {
	body := map[string]string{"username": username, "password": password, "email": email, "reference": reference}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

func (c *APIClient) Verify(ctx context.Context, token string) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/verify/"+url.PathEscape(token), nil, &out); err != nil {
		return "", err
	}
	return out.Username, nil
}

func (c *APIClient) Login(ctx context.Context, identifier, password string) (*Session, error) {
	var s Session
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *APIClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *APIClient) Catalog(ctx context.Context) ([]CatalogItem, error) {
	var items []CatalogItem
	if err := c.doJSON(ctx, http.MethodGet, "/api/catalog", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *APIClient) Buy(ctx context.Context, itemID int64) (*Purchase, error) {
	var p Purchase
	if err := c.doJSON(ctx, http.MethodPost, "/api/purchases", map[string]int64{"item_id": itemID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Download redeems reference for the item and writes the file to w. It
// returns the file name the server announced.
func (c *APIClient) Download(ctx context.Context, itemID int64, reference string, w io.Writer) (string, error) {
	u := c.baseURL + "/download/" + strconv.FormatInt(itemID, 10) + "?ref=" + url.QueryEscape(reference)

	name, err := netx.Download(ctx, c.http, u, c.headers(), w)
	var se *netx.StatusError
	if errors.As(err, &se) {
		return "", apiError(se.StatusCode, se.Body)
	}
	if err != nil {
		return "", transportError(err)
	}
	return name, nil
}

// Submit uploads a new catalog item. Files are streamed from disk.
func (c *APIClient) Submit(ctx context.Context, s Submission) (*CatalogItem, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeSubmission(mw, s))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/catalog", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var item CatalogItem
	if err := c.send(req, &item); err != nil {
		_ = pr.Close()
		return nil, err
	}
	return &item, nil
}

func writeSubmission(mw *multipart.Writer, s Submission) error {
	fields := [][2]string{
		{"title", s.Title},
		{"price", strconv.FormatInt(s.Price, 10)},
		{"ref", s.Reference},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	for _, f := range [][2]string{{"cover", s.CoverPath}, {"file", s.FilePath}} {
		if err := attach(mw, f[0], f[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

func attach(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func (c *APIClient) headers() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *APIClient) send(req *http.Request, out any) error {
	for k, v := range c.headers() {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return apiError(resp.StatusCode, b)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return &APIError{StatusCode: status, Message: e.Error}
}

func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	var oe *net.OpError
	if errors.As(err, &oe) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
