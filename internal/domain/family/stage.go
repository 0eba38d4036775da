package family

import (
	"fmt"
	"time"

	"github.com/turtacn/FamilyScope/pkg/errors"
)

// Stage is a record's position in the enrichment state machine.
type Stage string

const (
	StageRaw                  Stage = "raw"
	StageClaimExtracted       Stage = "claim_extracted"
	StageConceptGenerated     Stage = "concept_generated"
	StageRelationshipResolved Stage = "relationship_resolved"
	StageErrored              Stage = "errored"
)

// ─────────────────────────────────────────────────────────────────────────────
// State machine: allowed stage transitions
// ─────────────────────────────────────────────────────────────────────────────

// nextStage defines the single forward step from each non-terminal stage.
//
//	raw ──► claim_extracted ──► concept_generated ──► relationship_resolved
//	 │             │                    │
//	 └─────────────┴────────────────────┴──► errored
var nextStage = map[Stage]Stage{
	StageRaw:              StageClaimExtracted,
	StageClaimExtracted:   StageConceptGenerated,
	StageConceptGenerated: StageRelationshipResolved,
}

var prevStage = map[Stage]Stage{
	StageClaimExtracted:       StageRaw,
	StageConceptGenerated:     StageClaimExtracted,
	StageRelationshipResolved: StageConceptGenerated,
}

// String returns the wire value.
func (s Stage) String() string { return string(s) }

// IsValid reports whether s is a defined stage.
func (s Stage) IsValid() bool {
	switch s {
	case StageRaw, StageClaimExtracted, StageConceptGenerated, StageRelationshipResolved, StageErrored:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s Stage) IsTerminal() bool {
	return s == StageRelationshipResolved || s == StageErrored
}

// Next returns the stage that follows s and whether one exists.
func (s Stage) Next() (Stage, bool) {
	n, ok := nextStage[s]
	return n, ok
}

// Ordinal is the position of s in the forward chain, -1 for errored.
func (s Stage) Ordinal() int {
	switch s {
	case StageRaw:
		return 0
	case StageClaimExtracted:
		return 1
	case StageConceptGenerated:
		return 2
	case StageRelationshipResolved:
		return 3
	}
	return -1
}

// ─────────────────────────────────────────────────────────────────────────────
// Transition
// ─────────────────────────────────────────────────────────────────────────────

// StageResult is the outcome of one enrichment step.  Stage names the stage
// the step advances to.  A non-nil Err moves the record to StageErrored.
type StageResult struct {
	Stage                 Stage
	FirstIndependentClaim string
	InventiveConcept      string
	Relationship          Relationship
	Err                   error
}

// Transition applies res to r and returns the updated record.  It is pure: r
// is not modified.  Terminal records and results for any stage other than the
// immediate successor are rejected with an InvalidState error.
func Transition(r Record, res StageResult) (Record, error) {
	want, ok := r.Stage.Next()
	if !ok {
		return r, errors.InvalidState(fmt.Sprintf("record %s is in terminal stage %s", r.ID, r.Stage))
	}
	if res.Stage != want {
		return r, errors.InvalidState(fmt.Sprintf("record %s cannot move from %s to %s", r.ID, r.Stage, res.Stage))
	}

	out := r.Clone()
	out.UpdatedAt = time.Now().UTC()

	if res.Err != nil {
		msg := res.Err.Error()
		out.Stage = StageErrored
		out.FailedAt = want
		out.LastError = &msg
		return out, nil
	}

	switch want {
	case StageClaimExtracted:
		out.FirstIndependentClaim = res.FirstIndependentClaim
	case StageConceptGenerated:
		out.InventiveConcept = res.InventiveConcept
	case StageRelationshipResolved:
		rel := res.Relationship
		if out.Founding {
			rel = RelationshipOriginal
		} else if !rel.IsValid() || rel == RelationshipOriginal {
			rel = RelationshipUnknown
		}
		out.Relationship = rel
	}
	out.Stage = want
	out.FailedAt = ""
	out.LastError = nil
	return out, nil
}

// Rewind moves an errored record back to the last stage it completed so the
// failed step can be attempted again.  Data written by earlier stages is kept.
func Rewind(r Record) (Record, error) {
	if r.Stage != StageErrored {
		return r, errors.InvalidState(fmt.Sprintf("record %s is not errored (stage %s)", r.ID, r.Stage))
	}
	prev, ok := prevStage[r.FailedAt]
	if !ok {
		prev = StageRaw
	}
	out := r.Clone()
	out.Stage = prev
	out.FailedAt = ""
	out.LastError = nil
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

//Personal.AI order the ending
