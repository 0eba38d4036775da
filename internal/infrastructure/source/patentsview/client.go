// Package patentsview is the primary registry adapter.  It resolves a
// canonical patent number against a PatentsView-style JSON query API and
// returns the authoritative bibliographic record plus claim text.
package patentsview

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/FamilyScope/internal/domain/patent"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// SourceName labels this adapter in logs and metrics.
const SourceName = "patentsview"

const (
	maxResponseBytes = 8 << 20
	maxRetryWait     = 30 * time.Second
	maxBackoff       = 10 * time.Second
)

// errNoMatch is the internal signal for an empty registry answer.
var errNoMatch = stderrors.New("patentsview: no matching patent")

// Config holds the adapter settings.
type Config struct {
	BaseURL       string
	APIKey        string
	UserAgent     string
	Timeout       time.Duration
	RetryMax      int
	RetryWait     time.Duration
	RatePerSecond float64
	Burst         int
}

// Client implements patent.RegistrySource.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	metrics *prometheus.AppMetrics
	logger  logging.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a registry client.
func New(cfg Config, logger logging.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "famscope/registry"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limitFor(cfg.RatePerSecond), burstFor(cfg.Burst)),
		logger:  logger.Named(SourceName),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements patent.RegistrySource.
func (c *Client) Name() string { return SourceName }

// SetRate changes the request pacing at runtime.
func (c *Client) SetRate(perSecond float64, burst int) {
	c.limiter.SetLimit(limitFor(perSecond))
	c.limiter.SetBurst(burstFor(burst))
}

// ─────────────────────────────────────────────────────────────────────────────
// FetchByID
// ─────────────────────────────────────────────────────────────────────────────

// FetchByID looks number up, retrying once with the zero-padded form when
// the first lookup finds nothing.  Claims come from a separate query and
// their absence is not an error.
func (c *Client) FetchByID(ctx context.Context, number ptypes.Number) (*patent.RegistryRecord, error) {
	if number.IsZero() {
		return nil, errors.InvalidIdentifier("")
	}

	row, err := c.lookup(ctx, number)
	if stderrors.Is(err, errNoMatch) && number.Padded() {
		c.logger.Debug("registry miss, retrying with zero-padded identifier",
			logging.PatentNumber(number.String()), logging.String("variant", number.ZeroPad().String()))
		row, err = c.lookup(ctx, number.ZeroPad())
	}
	if stderrors.Is(err, errNoMatch) {
		return nil, errors.PatentNotFound(number.String())
	}
	if err != nil {
		return nil, err
	}

	rec := toRecord(number, row)
	rec.ClaimsText = joinClaims(row.Claims)
	if rec.ClaimsText == "" {
		rec.ClaimsText = c.fetchClaims(ctx, number)
	}
	return rec, nil
}

func (c *Client) lookup(ctx context.Context, number ptypes.Number) (patentRow, error) {
	var resp patentsResponse
	if err := c.post(ctx, "patents", "/patents/query", patentQuery(number.String()), &resp); err != nil {
		return patentRow{}, err
	}
	if len(resp.Patents) == 0 {
		return patentRow{}, errNoMatch
	}
	return resp.Patents[0], nil
}

// fetchClaims tries the canonical and padded identifiers until one yields at
// least one claim.
func (c *Client) fetchClaims(ctx context.Context, number ptypes.Number) string {
	variants := []ptypes.Number{number}
	if number.Padded() {
		variants = append(variants, number.ZeroPad())
	}
	for _, v := range variants {
		var resp claimsResponse
		err := c.post(ctx, "claims", "/claims/query", claimsQuery(v.String()), &resp)
		if err != nil {
			if ctx.Err() != nil {
				return ""
			}
			if !stderrors.Is(err, errNoMatch) {
				c.logger.Warn("claims query failed", logging.PatentNumber(number.String()),
					logging.String("variant", v.String()), logging.Err(err))
			}
			continue
		}
		if text := joinClaims(resp.Claims); text != "" {
			return text
		}
	}
	return ""
}

func toRecord(number ptypes.Number, row patentRow) *patent.RegistryRecord {
	date := firstNonEmpty(row.Date, row.AppDate)
	if date == "" && len(row.Applications) > 0 {
		date = strings.TrimSpace(row.Applications[0].AppDate)
	}
	return &patent.RegistryRecord{
		Number:   number,
		Title:    orDefault(row.Title, patent.FallbackTitle),
		Abstract: strings.TrimSpace(row.Abstract),
		Date:     orDefault(date, patent.FallbackDate),
		Type:     orDefault(row.Type, patent.FallbackType),
	}
}

// joinClaims orders claims by sequence and joins their text with blank lines.
func joinClaims(claims []claimRow) string {
	if len(claims) == 0 {
		return ""
	}
	sorted := append([]claimRow(nil), claims...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	parts := make([]string, 0, len(sorted))
	for _, cl := range sorted {
		if t := strings.TrimSpace(cl.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

// post issues one logical query.  429 and 5xx answers and transport errors
// are retried with backoff up to RetryMax times; only one attempt is ever in
// flight.  404 and empty bodies are reported as errNoMatch.
func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode registry query")
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, errors.ErrCodeCancelled, "registry request aborted")
		}

		start := time.Now()
		status, header, respBody, err := c.send(ctx, url, payload)
		elapsed := time.Since(start)

		var failure *errors.AppError
		var wait time.Duration
		switch {
		case err != nil:
			c.metrics.RecordSourceCall(SourceName, op, "error", elapsed)
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), errors.ErrCodeCancelled, "registry request aborted")
			}
			failure = errors.Upstream(0, "registry request failed").WithCause(err)
			wait = c.backoff(attempt, "")
		case status == http.StatusNotFound:
			c.metrics.RecordSourceCall(SourceName, op, "not_found", elapsed)
			return errNoMatch
		case status >= 200 && status < 300:
			if len(bytes.TrimSpace(respBody)) == 0 {
				c.metrics.RecordSourceCall(SourceName, op, "not_found", elapsed)
				return errNoMatch
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				c.metrics.RecordSourceCall(SourceName, op, "error", elapsed)
				return errors.Upstream(status, "registry returned malformed JSON").WithCause(err)
			}
			c.metrics.RecordSourceCall(SourceName, op, "success", elapsed)
			return nil
		default:
			c.metrics.RecordSourceCall(SourceName, op, "error", elapsed)
			failure = errors.Upstream(status, "registry request failed").WithDetail(upstreamMessage(header, respBody))
			if !retryable(status) {
				return failure
			}
			wait = c.backoff(attempt, header.Get("Retry-After"))
		}

		if attempt >= c.cfg.RetryMax {
			return failure
		}
		c.logger.Warn("retrying registry request",
			logging.String("operation", op), logging.Int("attempt", attempt+1),
			logging.Duration("wait", wait), logging.Err(failure))
		if err := c.sleep(ctx, wait); err != nil {
			return errors.Wrap(err, errors.ErrCodeCancelled, "registry request aborted")
		}
	}
}

func (c *Client) send(ctx context.Context, url string, payload []byte) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// backoff honours a Retry-After header (seconds or HTTP date) and otherwise
// grows exponentially from RetryWait with up to 25% jitter.
func (c *Client) backoff(attempt int, retryAfter string) time.Duration {
	if d, ok := parseRetryAfter(retryAfter); ok {
		if d > maxRetryWait {
			d = maxRetryWait
		}
		return d
	}
	d := c.cfg.RetryWait << uint(attempt)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func upstreamMessage(h http.Header, body []byte) string {
	if h != nil {
		if reason := h.Get("X-Status-Reason"); reason != "" {
			return reason
		}
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if t := eb.text(); t != "" {
			return t
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func limitFor(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

func burstFor(b int) int {
	if b < 1 {
		return 1
	}
	return b
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

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func orDefault(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}

//Personal.AI order the ending
