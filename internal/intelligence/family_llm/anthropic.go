package family_llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// Analyzer is the generative analysis capability: given a system prompt and
// a user prompt, return the model's text answer.
type Analyzer interface {
	Analyze(ctx context.Context, system, user string) (string, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, system, user string) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

const (
	anthropicVersion   = "2023-06-01"
	messagesPath       = "/v1/messages"
	statusOverloaded   = 529
	maxAnalyzerBody    = 4 << 20
	maxAnalyzerBackoff = 20 * time.Second
)

// AnthropicConfig configures the Messages API client.
type AnthropicConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	RetryMax      int
	RetryWait     time.Duration
	RatePerSecond float64
}

// AnthropicClient implements Analyzer over the Anthropic Messages API.
type AnthropicClient struct {
	cfg     AnthropicConfig
	http    *http.Client
	limiter *rate.Limiter
	metrics *prometheus.AppMetrics
	logger  logging.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// ClientOption configures an AnthropicClient.
type ClientOption func(*AnthropicClient)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *AnthropicClient) { c.http = h }
}

func WithMetrics(m *prometheus.AppMetrics) ClientOption {
	return func(c *AnthropicClient) { c.metrics = m }
}

// NewAnthropicClient creates a Messages API client.
func NewAnthropicClient(cfg AnthropicConfig, logger logging.Logger, opts ...ClientOption) *AnthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	c := &AnthropicClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("analyzer"),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRate changes the request pacing at runtime.
func (c *AnthropicClient) SetRate(perSecond float64) {
	if perSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Limit(perSecond))
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends one user message and returns the concatenated text blocks.
// 429 and 529 answers are retried; other non-2xx answers and transport
// failures are UpstreamErrors.
func (c *AnthropicClient) Analyze(ctx context.Context, system, user string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New(errors.ErrCodeAIModelNotAvailable, "analysis API key is not configured")
	}

	payload, err := json.Marshal(messageRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to encode analysis request")
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + messagesPath

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeCancelled, "analysis request aborted")
		}

		start := time.Now()
		status, header, body, err := c.send(ctx, url, payload)

		var failure *errors.AppError
		switch {
		case err != nil:
			if ctx.Err() != nil {
				c.metrics.RecordAnalyzerCall("messages", time.Since(start), err)
				return "", errors.Wrap(ctx.Err(), errors.ErrCodeCancelled, "analysis request aborted")
			}
			failure = errors.Upstream(0, "analysis request failed").WithCause(err)
		case status >= 200 && status < 300:
			var resp messageResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				failure = errors.Upstream(status, "analysis returned malformed JSON").WithCause(err)
				c.metrics.RecordAnalyzerCall("messages", time.Since(start), failure)
				return "", failure
			}
			c.metrics.RecordAnalyzerCall("messages", time.Since(start), nil)
			return joinText(resp.Content), nil
		default:
			failure = errors.Upstream(status, "analysis request failed").WithDetail(apiErrorMessage(body))
		}
		c.metrics.RecordAnalyzerCall("messages", time.Since(start), failure)

		retryable := err != nil || status == http.StatusTooManyRequests || status == statusOverloaded
		if !retryable || attempt >= c.cfg.RetryMax {
			return "", failure
		}
		wait := c.backoff(attempt, header)
		c.logger.Warn("retrying analysis request", logging.Int("attempt", attempt+1),
			logging.Int("status", status), logging.Duration("wait", wait))
		if err := c.sleep(ctx, wait); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeCancelled, "analysis request aborted")
		}
	}
}

func (c *AnthropicClient) send(ctx context.Context, url string, payload []byte) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalyzerBody))
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *AnthropicClient) backoff(attempt int, h http.Header) time.Duration {
	if h != nil {
		if secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After"))); err == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			if d > maxAnalyzerBackoff {
				d = maxAnalyzerBackoff
			}
			return d
		}
	}
	d := c.cfg.RetryWait << uint(attempt)
	if d > maxAnalyzerBackoff || d <= 0 {
		d = maxAnalyzerBackoff
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

func joinText(blocks []contentBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type != "" && b.Type != "text" {
			continue
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}

func apiErrorMessage(body []byte) string {
	var eb apiErrorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

//Personal.AI order the ending
