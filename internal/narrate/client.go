package narrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Result is a successful synthesis response.
type Result struct {
	// AudioURL locates the synthesized asset.
	AudioURL string

	// Duration is the narration length as reported by the provider.
	// Zero when the provider reported none or a non-finite value.
	Duration time.Duration
}

// Synthesizer converts text into a spoken-audio asset. Implementations
// return ErrRateLimited (or a RateLimitedError) on backend rate limits
// and any other error for per-item failures.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Result, error)
}

// HTTPSynthesizer calls a JSON synthesis endpoint:
// POST {"text": ...} -> {"audioUrl": ..., "duration": ms}.
type HTTPSynthesizer struct {
	endpoint string
	client   *http.Client
	logger   *log.Logger
}

// NewHTTPSynthesizer creates a synthesizer for the given endpoint. A nil
// client uses a default with a 30s timeout.
func NewHTTPSynthesizer(endpoint string, client *http.Client) *HTTPSynthesizer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSynthesizer{
		endpoint: endpoint,
		client:   client,
		logger:   log.Default().With("component", "synthesizer"),
	}
}

type synthesisRequest struct {
	Text string `json:"text"`
}

type synthesisResponse struct {
	AudioURL string  `json:"audioUrl"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error"`
}

// Synthesize posts the text and maps the response per the backend
// contract: 429 or a rate-limit indicator in the body is transient
// backpressure, anything else non-2xx or malformed is a hard per-item
// failure.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(synthesisRequest{Text: text})
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode request: %v", ErrSynthesisFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request: %v", ErrSynthesisFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Result{}, &RateLimitedError{RetryAfter: retryAfter(resp)}
	}

	var parsed synthesisResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	// Some providers report rate limits with a 200/4xx body instead of
	// a 429 status.
	if decodeErr == nil && isRateLimitIndicator(parsed.Error) {
		return Result{}, &RateLimitedError{}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: unexpected status %d", ErrSynthesisFailed, resp.StatusCode)
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrSynthesisFailed, decodeErr)
	}
	if parsed.AudioURL == "" {
		return Result{}, fmt.Errorf("%w: response missing audioUrl", ErrSynthesisFailed)
	}

	res := Result{AudioURL: parsed.AudioURL}
	if d := parsed.Duration; d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d) {
		res.Duration = time.Duration(d * float64(time.Millisecond))
	}

	s.logger.Debug("synthesized", "bytes", len(body), "duration", res.Duration)
	return res, nil
}

// retryAfter parses the Retry-After header, in whole seconds.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func isRateLimitIndicator(msg string) bool {
	if msg == "" {
		return false
	}
	m := strings.ToLower(msg)
	return strings.Contains(m, "rate limit") || strings.Contains(m, "too many requests")
}
