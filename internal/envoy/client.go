package envoy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/icholy/digest"

	"github.com/obsidianstack/envoy-exporter/internal/config"
)

// API paths appended to a device's base URL.
const (
	PathProduction = "/api/v1/production"
	PathInverters  = "/api/v1/production/inverters"
)

// maxBodyBytes caps how much of a device response is buffered.
const maxBodyBytes = 4 << 20

// Failure classes returned (wrapped) by Client.Fetch and Reader.Status.
var (
	// ErrTransport covers connection, timeout and HTTP status failures.
	ErrTransport = errors.New("transport error")
	// ErrDecode means the response body was not valid JSON.
	ErrDecode = errors.New("decode error")
	// ErrSchema means the JSON was well formed but lacked an expected field
	// or carried one of the wrong type.
	ErrSchema = errors.New("schema error")
)

// Client performs digest-authenticated GETs against one device's JSON API.
// It knows nothing about metrics.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for dev. Requests time out after timeout, which
// covers both legs of the digest handshake.
func NewClient(dev config.Device, timeout time.Duration) *Client {
	transport := &digest.Transport{
		Username:  dev.User,
		Password:  dev.Pass,
		Transport: &http.Transport{},
	}
	return newClient(dev.URL, &http.Client{
		Transport: transport,
		Timeout:   timeout,
	})
}

func newClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// Fetch GETs baseURL+suffix, buffers the whole body and returns it once it is
// known to be valid JSON. There are no retries.
func (c *Client) Fetch(ctx context.Context, suffix string) (json.RawMessage, error) {
	url := c.baseURL + suffix
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http get: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: response from %s exceeds %d bytes", ErrDecode, suffix, maxBodyBytes)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response from %s is not valid JSON", ErrDecode, suffix)
	}
	return json.RawMessage(body), nil
}
