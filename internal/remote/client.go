package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/warekit/punchd/internal/model"
)

// onlineProbeTimeout bounds the connectivity check; the backend is treated
// as offline when the probe does not answer in time.
const onlineProbeTimeout = 3 * time.Second

// Client is an authenticated HTTP client for the attendance backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client using the provided token and config.
// Refreshed tokens are persisted transparently.
func NewClient(ctx context.Context, baseURL string, tok *oauth2.Token, cfg *oauth2.Config) *Client {
	ts := cfg.TokenSource(ctx, tok)
	return &Client{
		baseURL:    baseURL,
		httpClient: oauth2.NewClient(ctx, &savingTokenSource{ts: ts}),
	}
}

// NewUnauthenticated creates a client over a plain HTTP client. Used against
// backends without an identity provider and by tests.
func NewUnauthenticated(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: hc}
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts oauth2.TokenSource
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	// Best-effort save; ignore errors.
	_ = saveToken(tok)
	return tok, nil
}

// uploadRequest is the blob write payload; the image travels base64-encoded.
type uploadRequest struct {
	Path string `json:"path"`
	Data string `json:"data"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadPhoto stores a PNG at {category}/{date}/{name}.png and returns the
// stable URL the backend serves it from.
func (c *Client) UploadPhoto(ctx context.Context, category, date, name string, png []byte) (string, error) {
	body, err := json.Marshal(uploadRequest{
		Path: fmt.Sprintf("%s/%s/%s.png", category, date, name),
		Data: base64.StdEncoding.EncodeToString(png),
	})
	if err != nil {
		return "", fmt.Errorf("encoding upload request: %w", err)
	}

	respBody, err := c.post(ctx, "/blobs", body)
	if err != nil {
		return "", err
	}
	var ur uploadResponse
	if err := json.Unmarshal(respBody, &ur); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if ur.URL == "" {
		return "", fmt.Errorf("blob store returned no URL")
	}
	return ur.URL, nil
}

// WriteEvent appends one attendance event document.
func (c *Client) WriteEvent(ctx context.Context, ev model.AttendanceEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	_, err = c.post(ctx, "/events", body)
	return err
}

// eventsResponse is the paged query response.
type eventsResponse struct {
	Value []model.AttendanceEvent `json:"value"`
	Next  string                  `json:"next"`
}

// ListEvents fetches the subject's events in [from, to], server time
// descending, following pagination links.
func (c *Client) ListEvents(ctx context.Context, subjectID string, from, to time.Time) ([]model.AttendanceEvent, error) {
	endpoint := fmt.Sprintf("%s/events?subject=%s&from=%s&to=%s&order=server_time_desc",
		c.baseURL,
		url.QueryEscape(subjectID),
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
	)

	var all []model.AttendanceEvent
	for endpoint != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("backend request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("backend error %d: %s", resp.StatusCode, string(body))
		}

		var page eventsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding events response: %w", err)
		}
		all = append(all, page.Value...)
		endpoint = page.Next
	}
	return all, nil
}

// Online probes the backend health endpoint with a short timeout.
func (c *Client) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, onlineProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// post sends a JSON body and returns the response body on 2xx.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("backend error %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
