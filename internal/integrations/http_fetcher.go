package integrations

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

const maxResponseSize = 1 << 20 // 1 MB

// Page is a fetched document.
type Page struct {
	Body        string
	ContentType string
}

// IsHTML reports whether the server labelled the page as HTML.
func (p Page) IsHTML() bool {
	mt, _, err := mime.ParseMediaType(p.ContentType)
	return err == nil && (mt == "text/html" || mt == "application/xhtml+xml")
}

// HTTPFetcher retrieves URL contents with a timeout and response size limit.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTPFetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the URL content, limited to 1 MB.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, fmt.Errorf("fetch %q: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Page{}, fmt.Errorf("read response: %w", err)
	}

	return Page{Body: string(body), ContentType: resp.Header.Get("Content-Type")}, nil
}
