package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shoreagents/staffmon/internal/domain"
)

const defaultRemoteTimeout = 15 * time.Second

// IdentityProvider supplies the credential and staff identity attached
// to every outbound call.
type IdentityProvider interface {
	Current() domain.IdentityContext
}

// RemoteClient talks to the workforce service over its HTTP contract:
// POST /metrics, POST /screenshots, GET /profile.
type RemoteClient struct {
	baseURL  string
	client   *http.Client
	identity IdentityProvider
}

// NewRemoteClient creates a client with a bounded request timeout.
// The identity provider is attached after construction via
// SetIdentity, since the binder resolves profiles through this client.
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SetIdentity attaches the credential source for outbound calls.
func (c *RemoteClient) SetIdentity(identity IdentityProvider) {
	c.identity = identity
}

// authorize attaches the session credential as cookie and bearer
// header. Requests go out unauthenticated when no credential is bound
// yet; the remote side rejects them and the caller's retry policy
// applies.
func (c *RemoteClient) authorize(req *http.Request) {
	if c.identity == nil {
		return
	}
	ic := c.identity.Current()
	if ic.Credential != "" {
		req.AddCookie(&http.Cookie{Name: "sa_session", Value: ic.Credential})
		req.Header.Set("Authorization", "Bearer "+ic.Credential)
	}
	if ic.DeviceID != "" {
		req.Header.Set("X-Device-ID", ic.DeviceID)
	}
}

// PushMetrics posts one sync delta as JSON.
func (c *RemoteClient) PushMetrics(ctx context.Context, delta domain.MetricSnapshot) error {
	body, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("failed to encode delta: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/metrics", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("metrics sync rejected: %s", resp.Status)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// UploadScreenshot posts one display's capture as a multipart form:
// image bytes, capture timestamp, display label, and the bound staff
// identifier when available.
func (c *RemoteClient) UploadScreenshot(ctx context.Context, event domain.CaptureEvent) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("screenshot", fmt.Sprintf("display-%d.jpg", event.Display))
	if err != nil {
		return err
	}
	if _, err := part.Write(event.Image); err != nil {
		return err
	}
	_ = w.WriteField("capturedAt", event.CapturedAt.UTC().Format(time.RFC3339))
	_ = w.WriteField("display", fmt.Sprintf("display-%d", event.Display))
	_ = w.WriteField("reason", string(event.Reason))
	if c.identity != nil {
		if ic := c.identity.Current(); ic.Bound() {
			_ = w.WriteField("staffId", ic.StaffID)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/screenshots", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("screenshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("screenshot upload rejected: %s", resp.Status)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// FetchProfile resolves the staff identifier behind the session
// credential.
func (c *RemoteClient) FetchProfile(ctx context.Context) (*domain.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/profile", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("profile request rejected: %s", resp.Status)
	}

	var profile domain.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if profile.StaffID == "" {
		return nil, fmt.Errorf("profile response missing staff id")
	}
	return &profile, nil
}

// Ensure RemoteClient implements the outbound contracts.
var (
	_ domain.MetricsSink    = (*RemoteClient)(nil)
	_ domain.ScreenshotSink = (*RemoteClient)(nil)
	_ domain.ProfileSource  = (*RemoteClient)(nil)
)
