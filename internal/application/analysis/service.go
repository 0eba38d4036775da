// Package analysis runs the family-wide analyses: overlap and
// differentiation across all enriched members, and the claim comparison of
// two members.
package analysis

import (
	"context"
	"sort"
	"strings"
	"time"

	appFamily "github.com/turtacn/FamilyScope/internal/application/family"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/intelligence/family_llm"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// MinAnalyzable is the number of members with an inventive concept needed
// for an overlap analysis.
const MinAnalyzable = 2

// Engine is the analysis surface used here.  family_llm.Engine implements
// it.
type Engine interface {
	AnalyzeFamily(ctx context.Context, records []family.Record) ([]family.OverlapAnalysis, error)
	CompareClaims(ctx context.Context, original, later family.Record) (*family_llm.ClaimComparison, error)
}

// SpanOp is the kind of a redline span.
type SpanOp string

const (
	SpanEqual  SpanOp = "equal"
	SpanInsert SpanOp = "insert"
	SpanDelete SpanOp = "delete"
)

// Span is one run of a claim redline.
type Span struct {
	Op   SpanOp `json:"op"`
	Text string `json:"text"`
}

// Differ renders a redline between two claim texts.
type Differ interface {
	Diff(original, later string) []Span
}

// FamilyResult is the answer to AnalyzeFamily.
type FamilyResult struct {
	Entries    []family.OverlapAnalysis `json:"analysis"`
	Applied    int                      `json:"applied"`
	Collection *family.Collection       `json:"family"`
}

// Comparison is the answer to CompareClaims.
type Comparison struct {
	Original family.Record               `json:"original"`
	Later    family.Record               `json:"later"`
	Result   *family_llm.ClaimComparison `json:"comparison"`
	Redline  []Span                      `json:"redline,omitempty"`
}

// Service runs analyses against the stored family.
type Service struct {
	store  family.Store
	engine Engine
	differ Differ
	logger logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDiffer attaches redlines to comparisons.
func WithDiffer(d Differ) Option { return func(s *Service) { s.differ = d } }

func NewService(store family.Store, engine Engine, logger logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{store: store, engine: engine, logger: logger.Named("analysis")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeFamily asks for overlap and differentiation across every member
// that has an inventive concept and writes the answer onto the stored
// members.  Entries for numbers not in the family are ignored.
func (s *Service) AnalyzeFamily(ctx context.Context) (*FamilyResult, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	var members []family.Record
	for _, r := range c.Records {
		if strings.TrimSpace(r.InventiveConcept) != "" {
			members = append(members, r)
		}
	}
	if len(members) < MinAnalyzable {
		return nil, errors.Newf(errors.ErrCodeFamilyTooSmall,
			"overlap analysis needs at least %d members with an inventive concept, have %d", MinAnalyzable, len(members))
	}

	start := time.Now()
	entries, err := s.engine.AnalyzeFamily(ctx, members)
	if err != nil {
		return nil, err
	}

	applied := 0
	c, err = family.Mutate(ctx, s.store, func(c *family.Collection) error {
		applied = c.ApplyAnalysis(entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.LogOperationDuration(s.logger, "analyze_family", start,
		logging.Int("members", len(members)), logging.Int("applied", applied))
	return &FamilyResult{Entries: entries, Applied: applied, Collection: c}, nil
}

// CompareClaims compares the first independent claims of two members,
// referenced by record id or patent number.  The member with the earlier
// date is the original; unparseable dates sort last.
func (s *Service) CompareClaims(ctx context.Context, refA, refB string) (*Comparison, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	a, err := appFamily.Resolve(c, refA)
	if err != nil {
		return nil, err
	}
	b, err := appFamily.Resolve(c, refB)
	if err != nil {
		return nil, err
	}
	if a.ID == b.ID {
		return nil, errors.InvalidParam("cannot compare a member with itself")
	}
	original, later := OrderByDate(a, b)
	for _, r := range []family.Record{original, later} {
		if strings.TrimSpace(r.FirstIndependentClaim) == "" {
			return nil, errors.New(errors.ErrCodeAIInputInvalid, "member has no first independent claim").
				WithDetail("patent=" + r.PatentNumber.String())
		}
	}

	result, err := s.engine.CompareClaims(ctx, original, later)
	if err != nil {
		return nil, err
	}
	out := &Comparison{Original: original, Later: later, Result: result}
	if s.differ != nil {
		out.Redline = s.differ.Diff(original.FirstIndependentClaim, later.FirstIndependentClaim)
	}
	s.logger.Info("claims compared", logging.PatentNumber(original.PatentNumber.String()),
		logging.String("later", later.PatentNumber.String()), logging.String("change_type", string(result.ChangeType)))
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Date ordering
// ─────────────────────────────────────────────────────────────────────────────

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01",
	"2006",
}

// ParseDate parses the date forms the sources produce.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OrderByDate returns a and b with the earlier date first.  A record whose
// date does not parse sorts after one that does; ties keep argument order.
func OrderByDate(a, b family.Record) (family.Record, family.Record) {
	pair := []family.Record{a, b}
	sort.SliceStable(pair, func(i, j int) bool {
		ti, oki := ParseDate(pair[i].Date)
		tj, okj := ParseDate(pair[j].Date)
		switch {
		case oki && okj:
			return ti.Before(tj)
		case oki:
			return true
		default:
			return false
		}
	})
	return pair[0], pair[1]
}

//Personal.AI order the ending
