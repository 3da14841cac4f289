package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"crypto-mining-client/utils"
)

// APIClient is the single chokepoint through which every call to the
// remote ledger passes. It injects the bearer token, serializes bodies,
// classifies failures into the gateway error taxonomy and tears down the
// session on a 401.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
	// UploadClient carries evidence uploads, which need a far longer
	// timeout than ordinary JSON calls.
	UploadClient *http.Client
	Sessions     *SessionStore
	Notifier     Notifier
}

func NewAPIClient(baseURL string, sessions *SessionStore, notifier Notifier) *APIClient {
	return &APIClient{
		BaseURL:  baseURL,
		Sessions: sessions,
		Notifier: notifier,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UploadClient: utils.UploadHTTPClient,
	}
}

// errorBody matches the ledger's structured error responses.
type errorBody struct {
	Detail string `json:"detail"`
}

// Do issues a JSON request against the ledger and returns the raw response
// body. Every failure surfaces exactly one notification here; callers must
// not re-report the error they receive.
func (c *APIClient) Do(ctx context.Context, method, path string, body any, requiresAuth bool) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.send(ctx, method, path, reader, "application/json", requiresAuth)
}

// DoUpload issues a request whose body is already encoded (e.g. multipart
// evidence uploads); content-type negotiation is left to the caller and
// the request runs on the long-timeout upload client.
func (c *APIClient) DoUpload(ctx context.Context, method, path string, body io.Reader, contentType string, requiresAuth bool) (json.RawMessage, error) {
	client := c.UploadClient
	if client == nil {
		client = c.HTTPClient
	}
	return c.sendWith(ctx, client, method, path, body, contentType, requiresAuth)
}

func (c *APIClient) send(ctx context.Context, method, path string, body io.Reader, contentType string, requiresAuth bool) (json.RawMessage, error) {
	return c.sendWith(ctx, c.HTTPClient, method, path, body, contentType, requiresAuth)
}

func (c *APIClient) sendWith(ctx context.Context, client *http.Client, method, path string, body io.Reader, contentType string, requiresAuth bool) (json.RawMessage, error) {
	token := c.Sessions.Token()
	if requiresAuth && token == "" {
		// Fail fast: an authenticated endpoint with no token must never
		// reach the network.
		c.notifyError("Please log in to continue")
		return nil, ErrUnauthenticated
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger base URL %q: %w", c.BaseURL, err)
	}
	endpoint := base.JoinPath(path).String()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", endpoint, err)
	}
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		c.notifyError("Network error. Please check your connection and try again")
		return nil, &NetworkError{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		// The single point where an expired or revoked token is detected.
		// Tear down the client-wide session before reporting.
		log.Printf("🚫 [GATEWAY] 401 from %s %s, clearing session", method, path)
		c.Sessions.Clear()
		c.notifyError("Session expired. Please log in again")
		return nil, ErrUnauthorized
	}

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := resp.Status
		var eb errorBody
		if readErr == nil && json.Unmarshal(payload, &eb) == nil && eb.Detail != "" {
			message = eb.Detail
		}
		c.notifyError(message)
		return nil, &RequestError{Status: resp.StatusCode, Message: message}
	}

	if readErr != nil {
		c.notifyError("Network error. Please check your connection and try again")
		return nil, &NetworkError{Err: readErr}
	}
	return payload, nil
}

func (c *APIClient) notifyError(message string) {
	if c.Notifier != nil {
		c.Notifier.Notify(NotifyError, message)
	}
}

func decodeJSON(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

// Call issues a request through the gateway and decodes the JSON response
// into T.
func Call[T any](ctx context.Context, c *APIClient, method, path string, body any, requiresAuth bool) (T, error) {
	var out T
	payload, err := c.Do(ctx, method, path, body, requiresAuth)
	if err != nil {
		return out, err
	}
	if len(payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return out, nil
}
