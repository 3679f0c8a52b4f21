package events

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/haasonsaas/turnengine/internal/errs"
)

const maxPublishAttempts = 4
const backoffBase = 0.3

// Sink publishes StreamEvents to the gateway's internal event-stream
// endpoint, retrying transient failures with exponential backoff and
// jitter.
type Sink struct {
	BaseURL        string
	InternalToken  string
	HTTPClient     *http.Client
	sleep          func(time.Duration)
	rng            *rand.Rand
}

func NewSink(baseURL, internalToken string, timeoutSeconds float64) *Sink {
	return &Sink{
		BaseURL:       baseURL,
		InternalToken: internalToken,
		HTTPClient:    &http.Client{Timeout: time.Duration(timeoutSeconds * float64(time.Second))},
		sleep:         time.Sleep,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Publish POSTs the event, making up to maxPublishAttempts attempts in
// total and retrying only on timeout, network error, or a 5xx response. A final failure raises an
// UpstreamTransient domain error.
func (s *Sink) Publish(ctx context.Context, ev StreamEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errs.Validation("cannot encode stream event: %s", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		ok, retryable, err := s.attempt(ctx, body)
		if ok {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		if attempt == maxPublishAttempts-1 {
			break
		}
		s.backoff(attempt)
	}
	return errs.WrapTransient(lastErr, "failed to publish stream event after %d attempts", maxPublishAttempts)
}

func (s *Sink) attempt(ctx context.Context, body []byte) (ok bool, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/internal/stream-events", bytes.NewReader(body))
	if err != nil {
		return false, false, errs.Validation("cannot build stream event request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-token", s.InternalToken)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, true, errs.TimedOut("stream event publish timed out")
		}
		return false, true, errs.WrapTransient(err, "stream event publish failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return false, true, errs.Transient("stream event publish returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return false, false, errs.Validation("stream event publish returned %d", resp.StatusCode)
	}
	return true, false, nil
}

func (s *Sink) backoff(attempt int) {
	base := backoffBase * math.Pow(2, float64(attempt))
	jitter := base * (s.rng.Float64()*0.4 - 0.2)
	s.sleep(time.Duration((base + jitter) * float64(time.Second)))
}
