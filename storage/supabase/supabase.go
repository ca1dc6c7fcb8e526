package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/oriser/roomies/roommate"
)

type Config struct {
	URL                  string        `env:"SUPABASE_URL"`
	APIKey               string        `env:"SUPABASE_API_KEY" json:"-"`
	HTTPMaxRetries       int           `env:"SUPABASE_HTTP_MAX_RETRIES" envDefault:"4"`
	HTTPMinRetryDuration time.Duration `env:"SUPABASE_HTTP_MIN_RETRY_DURATION" envDefault:"50ms"`
	HTTPMaxRetryDuration time.Duration `env:"SUPABASE_HTTP_MAX_RETRY_DURATION" envDefault:"2s"`
	MaxCacheEntryTime    time.Duration `env:"SUPABASE_PROFILE_CACHE_TIME" envDefault:"10m"`
}

// RequestError is a non 2xx answer from the REST API.
type RequestError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: status %d (%s): %s", e.Method, e.Path, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

type cacheEntry struct {
	profile *roommate.Profile
	expired time.Time
}

type Store struct {
	baseURL           *url.URL
	apiKey            string
	client            *http.Client
	lock              sync.RWMutex
	cache             map[string]cacheEntry
	maxCacheEntryTime time.Duration
}

func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing supabase URL")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse supabase URL: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryWaitMax = cfg.HTTPMaxRetryDuration
	client.RetryWaitMin = cfg.HTTPMinRetryDuration
	client.RetryMax = cfg.HTTPMaxRetries
	client.Logger = nil
	// Hand the last response to do so a persistent failure still surfaces as a RequestError
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, request *http.Request, i int) {
		if i != 0 {
			slog.Warn("Retrying supabase request", "method", request.Method, "path", request.URL.Path, "attempt", i)
		}
	}

	return &Store{
		baseURL:           u,
		apiKey:            cfg.APIKey,
		client:            client.StandardClient(),
		cache:             make(map[string]cacheEntry),
		maxCacheEntryTime: cfg.MaxCacheEntryTime,
	}, nil
}

func (s *Store) tableURL(table string, query url.Values) string {
	u := *s.baseURL
	u.Path = path.Join(u.Path, "/rest/v1", table)
	u.RawQuery = query.Encode()
	return u.String()
}

// do sends a request to the table endpoint and returns the parsed JSON answer (nil for an empty body).
func (s *Store) do(ctx context.Context, method, table string, query url.Values, body []byte, prefer string) (*gabs.Container, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.tableURL(table, query), reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending %s request to %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	output, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading output: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{Method: method, Path: req.URL.Path, Status: resp.StatusCode, Message: string(output)}
		if gc, err := gabs.ParseJSON(output); err == nil {
			if code, ok := gc.Path("code").Data().(string); ok {
				reqErr.Code = code
			}
			if message, ok := gc.Path("message").Data().(string); ok {
				reqErr.Message = message
			}
		}
		return nil, reqErr
	}

	if len(bytes.TrimSpace(output)) == 0 {
		return nil, nil
	}
	gc, err := gabs.ParseJSON(output)
	if err != nil {
		return nil, fmt.Errorf("parse %s response JSON (%s): %w", table, string(output), err)
	}
	return gc, nil
}

func eq(value string) string {
	return "eq." + value
}
