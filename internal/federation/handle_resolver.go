package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	resolverAttempts = 3
	resolverTimeout  = 10 * time.Second
)

var resolverInitialBackoff = time.Second

// HandleResolver maps a provider user id to a handle via a secondary lookup
// service. The provider profile usually carries the handle already; the
// resolver covers tokens whose scope did not include it.
type HandleResolver struct {
	endpoint string
	client   *http.Client
}

func NewHandleResolver(endpoint string) *HandleResolver {
	return &HandleResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: resolverTimeout},
	}
}

// Resolve looks up the handle for providerUserID. Only rate-limited
// responses are retried, up to three attempts, honoring a server-supplied
// Retry-After delay when present and falling back to exponential backoff
// otherwise. Any other failure is surfaced immediately.
func (r *HandleResolver) Resolve(ctx context.Context, providerUserID string) (string, error) {
	backoff := resolverInitialBackoff
	var lastErr error

	for attempt := 0; attempt < resolverAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		handle, retryAfter, retryable, err := r.attempt(ctx, providerUserID)
		if err == nil {
			return handle, nil
		}
		if !retryable {
			return "", fmt.Errorf("%w: %w", ErrHandleUnresolved, err)
		}
		lastErr = err
		if retryAfter > 0 {
			backoff = retryAfter
		}
	}

	return "", fmt.Errorf("%w: %w", ErrHandleUnresolved, lastErr)
}

// attempt performs one lookup. retryable is set only for rate-limited
// responses; a positive retryAfter carries the server-requested delay.
func (r *HandleResolver) attempt(ctx context.Context, providerUserID string) (handle string, retryAfter time.Duration, retryable bool, err error) {
	body, err := json.Marshal(map[string]string{"userId": providerUserID})
	if err != nil {
		return "", 0, false, fmt.Errorf("resolver: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, false, fmt.Errorf("resolver: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", 0, false, fmt.Errorf("resolver: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, parseErr := strconv.Atoi(resp.Header.Get("Retry-After")); parseErr == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return "", retryAfter, true, fmt.Errorf("resolver: rate limited (status 429)")
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", 0, false, fmt.Errorf("resolver: status %d: %s", resp.StatusCode, string(raw))
	}

	var out struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, false, fmt.Errorf("resolver: failed to decode response: %w", err)
	}
	if out.Handle == "" {
		return "", 0, false, fmt.Errorf("resolver: empty handle in response")
	}
	return out.Handle, 0, false, nil
}
