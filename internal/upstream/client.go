package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrMalformedResponse marks a completed request whose body could not be
// decoded into the expected shape.
var ErrMalformedResponse = errors.New("malformed upstream response")

// APIError is a non-success upstream reply with its reason string, when one
// could be decoded from the body.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Detail)
}

const csrfCookieName = "csrftoken"

// Client talks to the remote management API. It owns the session cookie jar,
// attaches the CSRF token to every mutating call and fails fast through a
// circuit breaker when the upstream is down.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	breaker    *gobreaker.CircuitBreaker[*reply]
	logger     *zap.Logger
}

type reply struct {
	status int
	body   []byte
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url: %w", err)
	}

	// Session and csrftoken cookies live in the jar for the whole process.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[*reply](gobreaker.Settings{
		Name:    "upstream-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		baseURL: base,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Ping checks upstream liveness.
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/api/ping/", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{StatusCode: status, Detail: "ping failed"}
	}
	return nil
}

// PrimeCSRF asks the upstream to set the csrftoken cookie. The mutating
// helpers call this lazily when the jar has no token yet.
func (c *Client) PrimeCSRF(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/api/csrf/", nil)
	if err != nil {
		return fmt.Errorf("failed to prime csrf token: %w", err)
	}
	if status != http.StatusOK {
		return &APIError{StatusCode: status, Detail: "csrf priming failed"}
	}
	return nil
}

func (c *Client) csrfToken() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

// do performs one JSON round-trip. Transport errors and 5xx replies count as
// breaker failures; business-level 4xx replies do not.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("error marshalling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		if token := c.csrfToken(); token != "" {
			req.Header.Set("X-CSRFToken", token)
		}
	}

	res, err := c.breaker.Execute(func() (*reply, error) {
		resp, errDo := c.httpClient.Do(req)
		if errDo != nil {
			return nil, fmt.Errorf("error calling upstream: %w", errDo)
		}
		defer resp.Body.Close()

		data, errRead := io.ReadAll(resp.Body)
		if errRead != nil {
			return nil, fmt.Errorf("error reading response: %w", errRead)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &APIError{StatusCode: resp.StatusCode, Detail: string(data)}
		}
		return &reply{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return 0, nil, err
	}
	return res.status, res.body, nil
}

// doMutating is do with CSRF priming for POST endpoints.
func (c *Client) doMutating(ctx context.Context, path string, payload any) (int, []byte, error) {
	if c.csrfToken() == "" {
		if err := c.PrimeCSRF(ctx); err != nil {
			return 0, nil, err
		}
	}
	return c.do(ctx, http.MethodPost, path, payload)
}

// apiError decodes the upstream {detail} failure shape, falling back to a
// generic reason when the body is not parseable.
func apiError(status int, body []byte) *APIError {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Detail == "" {
		return &APIError{StatusCode: status, Detail: "unexpected upstream reply"}
	}
	return &APIError{StatusCode: status, Detail: e.Detail}
}
