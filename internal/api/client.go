package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/cardscan/internal/imaging"
)

const maxResponseBytes = 10 * 1024 * 1024

var (
	// ErrTransport marks failures where no response was received
	ErrTransport = errors.New("transport failure")
	// ErrUnavailable marks responses that were received but not usable
	ErrUnavailable = errors.New("service unavailable")
	ErrNotFound    = errors.New("not found")
	// ErrNoPriceData is returned when a card has not been priced yet
	ErrNoPriceData = errors.New("no pricing data yet")
)

// StatusError is a response with a non-2xx code or a non-"ok" status field
type StatusError struct {
	Op      string
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: server returned HTTP %d", e.Op, e.Code)
	if e.Status != "" {
		msg += fmt.Sprintf(" status %q", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUnavailable
}

// TokenSource supplies the bearer token for authenticated requests
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// Client talks to the card backend
type Client struct {
	BaseURL    string
	StorageURL string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a backend client. A zero timeout leaves the transport
// default in place.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ImageURL resolves a storage key to a displayable URL
func (c *Client) ImageURL(key string) string {
	if key == "" || c.StorageURL == "" {
		return ""
	}
	return strings.TrimRight(c.StorageURL, "/") + "/" + strings.TrimLeft(key, "/")
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Err    string          `json:"err"`
	Error  string          `json:"error"`
	Detail string          `json:"detail"`
}

func (e envelope) message() string {
	for _, m := range []string{e.Err, e.Error, e.Detail} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (c *Client) getJSON(ctx context.Context, op, path string) (json.RawMessage, error) {
	return c.do(ctx, op, http.MethodGet, path, nil, "application/json")
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}
	return c.do(ctx, op, method, path, bytes.NewReader(body), "application/json")
}

// upload posts imagePath as the multipart "file" part along with scalar fields
func (c *Client) upload(ctx context.Context, op, path, imagePath string, fields map[string]string) (json.RawMessage, error) {
	local := imaging.LocalPath(imagePath)
	file, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open image: %w", op, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(local))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create form file: %w", op, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("%s: failed to copy image data: %w", op, err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("%s: failed to write field %s: %w", op, k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: failed to finish multipart body: %w", op, err)
	}

	return c.do(ctx, op, http.MethodPost, path, body, writer.FormDataContentType())
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get auth token: %w", op, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: failed to read response: %w", op, ErrTransport, err)
	}
	slog.Debug("Backend call", "op", op, "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.message()
		if decodeErr != nil || msg == "" {
			msg = truncate(string(raw), 200)
		}
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Status: env.Status, Message: msg}
	}
	if decodeErr != nil {
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
			return trimmed, nil
		}
		return nil, fmt.Errorf("%s: %w: failed to decode response: %w", op, ErrUnavailable, decodeErr)
	}

	if env.Status != "ok" && (env.Status != "" || env.message() != "") {
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Status: env.Status, Message: env.message()}
	}
	if env.Status == "" && len(env.Data) == 0 {
		// bare payload without the status envelope
		return raw, nil
	}
	return env.Data, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
