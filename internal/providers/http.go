package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// maxErrorBody bounds how much of an error response body is kept in messages.
	maxErrorBody = 512
	// maxRetryAfter caps the wait requested by a Retry-After header.
	maxRetryAfter = time.Minute
)

// retryPolicy controls transport retries for hand-rolled HTTP clients.
type retryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

func (p retryPolicy) withDefaults() retryPolicy {
	if p.Attempts == 0 {
		p.Attempts = 3
	}
	if p.Delay == 0 {
		p.Delay = 2 * time.Second
	}
	return p
}

// doWithRetry sends the request built by newReq and returns the 2xx body.
// Network failures become *TransportError, non-2xx responses *StatusError.
// Both are retried (statuses only when 429 or 5xx) until attempts run out;
// the last error is returned. A Retry-After header on a retried status sets
// the wait before the next attempt.
func doWithRetry(
	ctx context.Context,
	client *http.Client,
	provider string,
	policy retryPolicy,
	newReq func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	policy = policy.withDefaults()

	var body []byte
	err := retry.Do(
		func() error {
			req, err := newReq(ctx)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}

			resp, err := client.Do(req)
			if err != nil {
				return &TransportError{Provider: provider, Err: fmt.Errorf("request failed: %w", err)}
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return &TransportError{Provider: provider, Err: fmt.Errorf("failed to read response: %w", err)}
			}

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				msg := string(data)
				if len(msg) > maxErrorBody {
					msg = msg[:maxErrorBody]
				}
				return &StatusError{
					Provider:   provider,
					StatusCode: resp.StatusCode,
					Message:    msg,
					RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				}
			}

			body = data
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(policy.Attempts),
		retry.Delay(policy.Delay),
		retry.DelayType(retryAfterDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		if ctx.Err() != nil && !IsTransport(err) {
			return nil, &TransportError{Provider: provider, Err: ctx.Err()}
		}
		return nil, err
	}
	return body, nil
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return IsTransport(err)
}

// retryAfterDelay waits as long as the provider asked, up to maxRetryAfter,
// and falls back to exponential backoff when it did not say.
func retryAfterDelay(n uint, err error, config *retry.Config) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return min(statusErr.RetryAfter, maxRetryAfter)
	}
	return retry.BackOffDelay(n, err, config)
}
