package telephony

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrCredentialsMissing means provider credentials are not configured, so
// authenticated recording fetches are impossible.
var ErrCredentialsMissing = errors.New("telephony: provider credentials not configured")

// ErrHostNotAllowed means the URL points outside the configured recording
// hosts; no request is made.
var ErrHostNotAllowed = errors.New("telephony: recording host not allowed")

// UpstreamError carries a non-2xx provider response status.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("telephony: upstream returned %d", e.StatusCode)
}

// Audio is an open recording download. Callers must close Body.
type Audio struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// RecordingClient downloads recordings with the account's basic-auth
// credentials. The credentials never leave this type and are only sent to
// allowedHosts; an empty list allows nothing.
type RecordingClient struct {
	client       *resty.Client
	accountSID   string
	authToken    string
	allowedHosts []string
}

func NewRecordingClient(accountSID, authToken string, allowedHosts []string, timeout time.Duration) *RecordingClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &RecordingClient{
		client:       resty.New().SetTimeout(timeout),
		accountSID:   accountSID,
		authToken:    authToken,
		allowedHosts: hosts,
	}
}

func (c *RecordingClient) Configured() bool {
	return c != nil && c.accountSID != "" && c.authToken != ""
}

// Allows reports whether rawURL is an http(s) URL on an allowed host.
func (c *RecordingClient) Allows(rawURL string) bool {
	if c == nil {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range c.allowedHosts {
		if h == host {
			return true
		}
	}
	return false
}

// Open starts the download of rawURL. Non-2xx responses become *UpstreamError.
func (c *RecordingClient) Open(ctx context.Context, rawURL string) (*Audio, error) {
	if !c.Allows(rawURL) {
		return nil, ErrHostNotAllowed
	}
	if !c.Configured() {
		return nil, ErrCredentialsMissing
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBasicAuth(c.accountSID, c.authToken).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch recording: %w", err)
	}

	body := resp.RawBody()
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		if body != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
			_ = body.Close()
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode()}
	}

	a := &Audio{Body: body, ContentType: resp.Header().Get("Content-Type"), ContentLength: -1}
	if resp.RawResponse != nil {
		a.ContentLength = resp.RawResponse.ContentLength
	}
	if a.ContentType == "" {
		a.ContentType = "audio/mpeg"
	}
	return a, nil
}
