// Package netx holds small HTTP helpers shared by the CLI.
package netx

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
)

const maxErrorBody = 64 << 10

// StatusError is returned for a non-200 response. Body holds at most the
// first 64 KiB of the response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Download GETs url with c, following redirects, and copies the body to w.
// It returns the file name announced by Content-Disposition, or the last
// path element of the final URL.
func Download(ctx context.Context, c *http.Client, url string, header http.Header, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: b}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download interrupted: %w", err)
	}
	return FileName(resp), nil
}

// FileName extracts the attachment name of resp.
func FileName(resp *http.Response) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			return path.Base(name)
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if base := path.Base(resp.Request.URL.Path); base != "/" && base != "." {
			return base
		}
	}
	return ""
}
