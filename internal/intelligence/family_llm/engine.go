// Package family_llm holds the prompts and the analysis client used to
// enrich family records: first-claim extraction, inventive concept,
// relationship inference, family overlap analysis and claim comparison.
package family_llm

import (
	"context"
	"strings"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// ChangeType classifies how a later claim differs from the original.
type ChangeType string

const (
	ChangeNarrowing            ChangeType = "narrowing"
	ChangeBroadening           ChangeType = "broadening"
	ChangeDifferentScope       ChangeType = "different_scope"
	ChangeSubstantiallySimilar ChangeType = "substantially_similar"
)

// NormalizeChangeType maps unknown answers to different_scope.
func NormalizeChangeType(s string) ChangeType {
	switch ct := ChangeType(strings.ToLower(strings.TrimSpace(s))); ct {
	case ChangeNarrowing, ChangeBroadening, ChangeDifferentScope, ChangeSubstantiallySimilar:
		return ct
	}
	return ChangeDifferentScope
}

// ElementComparison is one claim element across the two claims.
type ElementComparison struct {
	Element        string `json:"element"`
	InOriginal     string `json:"inOriginal"`
	InContinuation string `json:"inContinuation"`
	Status         string `json:"status"`
}

// ClaimComparison is the structured comparison answer.
type ClaimComparison struct {
	ChangeType        ChangeType          `json:"changeType"`
	Summary           string              `json:"summary"`
	PreambleStatus    string              `json:"preambleStatus,omitempty"`
	ElementComparison []ElementComparison `json:"elementComparison"`
}

var elementStatuses = map[string]bool{"same": true, "modified": true, "added": true, "removed": true}

// Engine turns family records into prompts and model answers into values.
type Engine struct {
	analyzer Analyzer
	prompts  *Prompts
	logger   logging.Logger
}

// NewEngine creates an Engine over analyzer.
func NewEngine(analyzer Analyzer, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{analyzer: analyzer, prompts: MustPrompts(), logger: logger.Named("family_llm")}
}

func (e *Engine) call(ctx context.Context, name PromptName, data interface{}) (string, error) {
	system, user, err := e.prompts.Render(name, data)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to render prompt")
	}
	out, err := e.analyzer.Analyze(ctx, system, user)
	if err != nil {
		code := errors.GetCode(err)
		if code == errors.CodeUnknown {
			code = errors.ErrCodeAIInferenceFailed
		}
		return "", errors.Wrap(err, code, "analysis call failed: "+string(name))
	}
	return out, nil
}

// ExtractFirstClaim returns the first independent claim of claimsText.
func (e *Engine) ExtractFirstClaim(ctx context.Context, claimsText string) (string, error) {
	if strings.TrimSpace(claimsText) == "" {
		return "", errors.New(errors.ErrCodeAIInputInvalid, "record has no claims text")
	}
	out, err := e.call(ctx, PromptFirstClaim, firstClaimData{ClaimsText: claimsText})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// InventiveConcept summarizes claim in one or two sentences.
func (e *Engine) InventiveConcept(ctx context.Context, title, claim string) (string, error) {
	out, err := e.call(ctx, PromptConcept, conceptData{Title: title, Claim: claim})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Relationship infers how r relates to existing.  Answers outside the known
// set come back as unknown; only a failed call is an error.
func (e *Engine) Relationship(ctx context.Context, r family.Record, existing []family.Record) (family.Relationship, error) {
	if len(existing) == 0 {
		return family.RelationshipOriginal, nil
	}
	data := relationshipData{New: summaryOf(r)}
	for _, ex := range existing {
		data.Existing = append(data.Existing, summaryOf(ex))
	}
	out, err := e.call(ctx, PromptRelationship, data)
	if err != nil {
		return "", err
	}
	rel := family.NormalizeRelationship(out)
	if rel == family.RelationshipUnknown && strings.TrimSpace(out) != "unknown" {
		e.logger.Debug("relationship answer coerced to unknown",
			logging.PatentNumber(r.PatentNumber.String()), logging.String("answer", snippet(out)))
	}
	return rel, nil
}

// AnalyzeFamily asks for overlap and differentiation across records.
func (e *Engine) AnalyzeFamily(ctx context.Context, records []family.Record) ([]family.OverlapAnalysis, error) {
	data := familyData{}
	for _, r := range records {
		data.Patents = append(data.Patents, summaryOf(r))
	}
	out, err := e.call(ctx, PromptFamily, data)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Analysis []family.OverlapAnalysis `json:"analysis"`
	}
	if err := ExtractJSONObject(out, &resp); err != nil {
		return nil, err
	}
	return resp.Analysis, nil
}

// CompareClaims compares the first independent claims of original and later.
func (e *Engine) CompareClaims(ctx context.Context, original, later family.Record) (*ClaimComparison, error) {
	out, err := e.call(ctx, PromptCompare, compareData{Original: summaryOf(original), Continuation: summaryOf(later)})
	if err != nil {
		return nil, err
	}
	var cmp ClaimComparison
	if err := ExtractJSONObject(out, &cmp); err != nil {
		return nil, err
	}
	cmp.ChangeType = NormalizeChangeType(string(cmp.ChangeType))
	for i := range cmp.ElementComparison {
		s := strings.ToLower(strings.TrimSpace(cmp.ElementComparison[i].Status))
		if !elementStatuses[s] {
			s = "modified"
		}
		cmp.ElementComparison[i].Status = s
	}
	if cmp.ElementComparison == nil {
		cmp.ElementComparison = []ElementComparison{}
	}
	return &cmp, nil
}

func summaryOf(r family.Record) PatentSummary {
	return PatentSummary{
		Number:           r.PatentNumber.String(),
		Title:            r.Title,
		Date:             r.Date,
		Relationship:     string(r.Relationship),
		Claim:            r.FirstIndependentClaim,
		InventiveConcept: r.InventiveConcept,
	}
}

//Personal.AI order the ending
