// Package gpatents is the secondary document store adapter.  It fetches the
// public HTML page of a patent, extracts its claims and harvests family
// candidates from the sections a family.SectionPolicy marks as family.
package gpatents

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/domain/patent"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// SourceName labels this adapter in logs and metrics.
const SourceName = "gpatents"

const maxPageBytes = 16 << 20

// DefaultSuffixes are the kind codes tried before the bare identifier.
var DefaultSuffixes = []string{"B2", "B1", "A1", "A"}

// Archive stores raw page snapshots.
type Archive interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Config holds the adapter settings.
type Config struct {
	BaseURL       string
	Suffixes      []string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Client implements patent.DocumentSource.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	policy  *family.SectionPolicy
	archive Archive
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(c *Client) { c.metrics = m } }

// WithPolicy replaces the default section policy.
func WithPolicy(p *family.SectionPolicy) Option { return func(c *Client) { c.policy = p } }

// WithArchive enables raw HTML snapshots.
func WithArchive(a Archive) Option { return func(c *Client) { c.archive = a } }

// New creates a document store client.
func New(cfg Config, logger logging.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = patent.DefaultDocumentBase
	}
	if cfg.Suffixes == nil {
		cfg.Suffixes = DefaultSuffixes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "famscope/documents"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limitFor(cfg.RatePerSecond), burstFor(cfg.Burst)),
		policy:  family.DefaultSectionPolicy(),
		logger:  logger.Named(SourceName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements patent.DocumentSource.
func (c *Client) Name() string { return SourceName }

// SetRate changes the request pacing at runtime.
func (c *Client) SetRate(perSecond float64, burst int) {
	c.limiter.SetLimit(limitFor(perSecond))
	c.limiter.SetBurst(burstFor(burst))
}

// Variants lists the identifiers tried for number, in order.
func (c *Client) Variants(number ptypes.Number) []string {
	base := number.String()
	out := make([]string, 0, len(c.cfg.Suffixes)+1)
	seen := map[string]bool{}
	for _, s := range append(append([]string{}, c.cfg.Suffixes...), "") {
		v := base + strings.ToUpper(strings.TrimSpace(s))
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// FetchDocument tries each variant until one page carries a claims marker
// and parses exactly that page.  It returns (nil, nil) when no variant
// worked; the only error is the context ending.
func (c *Client) FetchDocument(ctx context.Context, number ptypes.Number) (*patent.Document, error) {
	if number.IsZero() {
		return nil, nil
	}

	for _, variant := range c.Variants(number) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		url := c.pageURL(variant)
		body, err := c.get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("document variant unavailable",
				logging.PatentNumber(number.String()), logging.String("variant", variant), logging.Err(err))
			continue
		}

		p, ok, err := parseDocument(bytes.NewReader(body), number, c.policy)
		if err != nil || !ok {
			c.logger.Debug("document variant has no claims marker",
				logging.PatentNumber(number.String()), logging.String("variant", variant))
			continue
		}

		c.archivePage(ctx, number, variant, body)
		c.logger.Debug("document parsed",
			logging.PatentNumber(number.String()), logging.String("variant", variant),
			logging.Int("candidates", len(p.candidates)), logging.Int("sections", len(p.sections)))

		return &patent.Document{
			Number:     number,
			Variant:    variant,
			URL:        url,
			ClaimsText: p.claims,
			Sections:   p.sections,
			Candidates: p.candidates,
		}, nil
	}
	return nil, nil
}

func (c *Client) pageURL(variant string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/patent/US" + variant + "/en"
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordSourceCall(SourceName, "document", "error", time.Since(start))
		return nil, errors.Upstream(0, "document request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result := "error"
		if resp.StatusCode == http.StatusNotFound {
			result = "not_found"
		}
		c.metrics.RecordSourceCall(SourceName, "document", result, time.Since(start))
		return nil, errors.Upstream(resp.StatusCode, "document request failed")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	c.metrics.RecordSourceCall(SourceName, "document", outcome(err), time.Since(start))
	if err != nil {
		return nil, errors.Upstream(resp.StatusCode, "failed to read document").WithCause(err)
	}
	return body, nil
}

// archivePage stores the raw page.  Failures are logged and ignored.
func (c *Client) archivePage(ctx context.Context, number ptypes.Number, variant string, body []byte) {
	if c.archive == nil {
		return
	}
	key := ArchiveKey(number, variant)
	if err := c.archive.PutObject(ctx, key, body, "text/html; charset=utf-8"); err != nil {
		c.logger.Warn("document archive failed", logging.PatentNumber(number.String()),
			logging.String("key", key), logging.Err(err))
	}
}

// ArchiveKey is the object key of a page snapshot.
func ArchiveKey(number ptypes.Number, variant string) string {
	return "documents/" + number.String() + "/" + variant + ".html"
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

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

//Personal.AI order the ending
