package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	USER_AGENT      = "awair-local/1.0.0"
	REQUEST_TIMEOUT = 5 * time.Second
	MAX_BODY_SIZE   = 1 << 20
)

// Client talks to devices over the local HTTP API. It holds no per-device
// state, so one Client can serve any number of Devices concurrently.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
}

type ClientOption func(*Client)

// WithTimeout bounds every request, including reading the response body.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.timeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

func WithUserAgent(userAgent string) ClientOption {
	return func(client *Client) {
		client.userAgent = userAgent
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

func NewClient(options ...ClientOption) *Client {
	client := &Client{
		timeout:   REQUEST_TIMEOUT,
		userAgent: USER_AGENT,
	}

	for _, option := range options {
		option(client)
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}

	if client.timeout <= 0 {
		client.timeout = REQUEST_TIMEOUT
	}

	return client
}

func NewClientWithLogger(logger *slog.Logger) *Client {
	return NewClient(WithLogger(logger))
}

func (client *Client) log(level slog.Level, msg string, args ...any) {
	if client.logger != nil {
		client.logger.Log(context.Background(), level, msg, args...)
	}
}

// FetchLatest requests the current reading from device. It never retries.
//
// Devices without a pinned or previously detected endpoint variant are
// probed with every entry of KnownEndpoints, newest first. The first variant
// that answers with a decodable reading is remembered on the device.
func (client *Client) FetchLatest(ctx context.Context, device *Device) (*Reading, error) {
	if endpoint, ok := device.Endpoint(); ok {
		return client.fetchReading(ctx, device, endpoint)
	}

	return client.detectAndFetch(ctx, device)
}

func (client *Client) detectAndFetch(ctx context.Context, device *Device) (*Reading, error) {
	var fallback error

	for _, endpoint := range KnownEndpoints {
		reading, err := client.fetchReading(ctx, device, endpoint)
		if err == nil {
			device.rememberEndpoint(endpoint)
			client.log(slog.LevelDebug, "Endpoint variant detected", "device", device.Address(), "endpoint", endpoint.Name)
			return reading, nil
		}

		// The device is unreachable or failing; other paths will not fare better.
		if IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}

		client.log(slog.LevelDebug, "Endpoint variant rejected", "device", device.Address(), "endpoint", endpoint.Name, "error", err)

		if fallback == nil || isNotFound(fallback) {
			fallback = err
		}
	}

	if fallback == nil {
		return nil, fmt.Errorf("no endpoint variants configured")
	}

	return nil, fallback
}

func isNotFound(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Kind != ErrorKindHTTP {
		return false
	}

	return clientErr.StatusCode == http.StatusNotFound || clientErr.StatusCode == http.StatusMethodNotAllowed
}

func (client *Client) fetchReading(ctx context.Context, device *Device, endpoint Endpoint) (*Reading, error) {
	url := device.URL(endpoint.Path)

	body, err := client.get(ctx, url)
	if err != nil {
		return nil, err
	}

	reading, err := endpoint.Decode(body)
	if err != nil {
		return nil, &ClientError{Kind: ErrorKindDecode, URL: url, StatusCode: http.StatusOK, Err: err}
	}

	client.log(slog.LevelDebug, "Reading fetched", "device", device.Address(), "endpoint", endpoint.Name, "score", reading.Score)

	return reading, nil
}

// get performs a GET request and returns the body of a 200 response.
func (client *Client) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("User-Agent", client.userAgent)
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, &ClientError{Kind: ErrorKindTransport, URL: url, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(response.Body, MAX_BODY_SIZE))
		return nil, &ClientError{Kind: ErrorKindHTTP, URL: url, StatusCode: response.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, MAX_BODY_SIZE))
	if err != nil {
		return nil, &ClientError{Kind: ErrorKindTransport, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return body, nil
}
