// Package acquisition resolves one raw identifier into a raw family record
// and its family candidates.  The primary registry is authoritative; the
// secondary document store only supplements claims and candidates.
package acquisition

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/domain/patent"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// ClaimsSource records where a result's claims text came from.
type ClaimsSource string

const (
	ClaimsFromRegistry ClaimsSource = "registry"
	ClaimsFromDocument ClaimsSource = "document"
	ClaimsNone         ClaimsSource = "none"
)

// Result is the merged answer of one acquisition.
type Result struct {
	Number       ptypes.Number   `json:"patent_number"`
	Title        string          `json:"title"`
	Abstract     string          `json:"abstract,omitempty"`
	Date         string          `json:"date"`
	PatentType   string          `json:"patent_type"`
	ClaimsText   string          `json:"claims_text"`
	ClaimsSource ClaimsSource    `json:"claims_source"`
	DocumentURL  string          `json:"document_url"`
	Candidates   []ptypes.Number `json:"candidates"`
	Degraded     bool            `json:"degraded"`
}

// NewRecord builds the raw record for r.
func (r *Result) NewRecord(id string) family.Record {
	rec := family.NewRecord(id, r.Number, r.Title, r.Date)
	rec.PatentType = r.PatentType
	rec.AllClaimsText = r.ClaimsText
	rec.DocumentURL = r.DocumentURL
	return rec
}

// Orchestrator fans a lookup out to both sources and merges the answers.
type Orchestrator struct {
	registry     patent.RegistrySource
	documents    patent.DocumentSource
	documentBase string
	metrics      *prometheus.AppMetrics
	logger       logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDocumentBase sets the base used for fallback document links.
func WithDocumentBase(base string) Option { return func(o *Orchestrator) { o.documentBase = base } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// NewOrchestrator creates an Orchestrator.  documents may be nil, in which
// case every acquisition is degraded.
func NewOrchestrator(registry patent.RegistrySource, documents patent.DocumentSource, logger logging.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	o := &Orchestrator{
		registry:     registry,
		documents:    documents,
		documentBase: patent.DefaultDocumentBase,
		logger:       logger.Named("acquisition"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Acquire normalizes raw and fetches it from both sources concurrently.
//
// An invalid identifier fails immediately.  A registry NotFound or Upstream
// error is returned as is and cancels the document fetch.  A document
// failure only degrades the result to empty candidates.
func (o *Orchestrator) Acquire(ctx context.Context, raw string, existing family.Membership) (*Result, error) {
	number, err := ptypes.Normalize(raw)
	if err != nil {
		o.metrics.RecordAcquisition("invalid")
		return nil, err
	}

	start := time.Now()
	var (
		reg    *patent.RegistryRecord
		doc    *patent.Document
		docErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := o.registry.FetchByID(gctx, number)
		if err != nil {
			return err
		}
		reg = r
		return nil
	})
	if o.documents != nil {
		g.Go(func() error {
			doc, docErr = o.documents.FetchDocument(gctx, number)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		result := "error"
		if errors.IsNotFound(err) {
			result = "not_found"
		}
		o.metrics.RecordAcquisition(result)
		o.logger.Info("acquisition failed", logging.PatentNumber(number.String()),
			logging.Source(o.registry.Name()), logging.Err(err))
		return nil, err
	}

	res := o.merge(number, reg, doc, existing)
	if docErr != nil || doc == nil {
		res.Degraded = true
		source := "none"
		if o.documents != nil {
			source = o.documents.Name()
			o.metrics.RecordDegraded(source)
		}
		o.logger.Warn("document source unavailable, continuing without candidates",
			logging.PatentNumber(number.String()), logging.Source(source),
			logging.String("error_code", string(errors.ErrCodeDataSourceUnavailable)), logging.Err(docErr))
	}

	o.metrics.RecordAcquisition("success")
	o.logger.Debug("acquired patent", logging.PatentNumber(number.String()),
		logging.String("claims_source", string(res.ClaimsSource)),
		logging.Int("candidates", len(res.Candidates)), logging.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (o *Orchestrator) merge(number ptypes.Number, reg *patent.RegistryRecord, doc *patent.Document, existing family.Membership) *Result {
	res := &Result{
		Number:       number,
		Title:        reg.Title,
		Abstract:     reg.Abstract,
		Date:         reg.Date,
		PatentType:   reg.Type,
		ClaimsText:   reg.ClaimsText,
		ClaimsSource: ClaimsFromRegistry,
		DocumentURL:  patent.DocumentURL(o.documentBase, number),
		Candidates:   []ptypes.Number{},
	}
	if res.ClaimsText == "" {
		res.ClaimsSource = ClaimsNone
	}
	if doc == nil {
		return res
	}

	if res.ClaimsText == "" && doc.ClaimsText != "" {
		res.ClaimsText = doc.ClaimsText
		res.ClaimsSource = ClaimsFromDocument
	}
	if doc.URL != "" {
		res.DocumentURL = doc.URL
	}
	res.Candidates = FilterCandidates(doc.Candidates, number, existing)
	return res
}

// FilterCandidates drops self, members of existing and duplicates from
// candidates, preserving order.
func FilterCandidates(candidates []ptypes.Number, self ptypes.Number, existing family.Membership) []ptypes.Number {
	out := make([]ptypes.Number, 0, len(candidates))
	seen := map[ptypes.Number]bool{self: true}
	for _, c := range candidates {
		if c.IsZero() || seen[c] {
			continue
		}
		seen[c] = true
		if existing != nil && existing.Contains(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

//Personal.AI order the ending
