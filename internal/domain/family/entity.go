// Package family implements the patent-family bounded context: the Record
// entity, the per-record enrichment state machine, the Collection aggregate
// that enforces one record per canonical identifier, the collection store
// contract, and the section-classification policy used to separate family
// references from citations.
package family

import (
	"strings"
	"time"

	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// ─────────────────────────────────────────────────────────────────────────────
// Relationship
// ─────────────────────────────────────────────────────────────────────────────

// Relationship describes how a record relates to the founding member of its
// family.
type Relationship string

const (
	RelationshipOriginal     Relationship = "original"
	RelationshipContinuation Relationship = "continuation"
	RelationshipDivisional   Relationship = "divisional"
	RelationshipCIP          Relationship = "cip"
	RelationshipUnknown      Relationship = "unknown"
)

// IsValid reports whether r is one of the defined relationship values.
func (r Relationship) IsValid() bool {
	switch r {
	case RelationshipOriginal, RelationshipContinuation, RelationshipDivisional,
		RelationshipCIP, RelationshipUnknown:
		return true
	}
	return false
}

// NormalizeRelationship coerces a free-text classification answer into a
// Relationship.  Only continuation, divisional and cip are accepted; every
// other answer, "original" included, becomes RelationshipUnknown.
func NormalizeRelationship(answer string) Relationship {
	switch r := Relationship(strings.ToLower(strings.TrimSpace(answer))); r {
	case RelationshipContinuation, RelationshipDivisional, RelationshipCIP:
		return r
	}
	return RelationshipUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Record entity
// ─────────────────────────────────────────────────────────────────────────────

// Record is one member of the family collection.
type Record struct {
	ID           string        `json:"id"`
	PatentNumber ptypes.Number `json:"patent_number"`
	Title        string        `json:"title"`
	Date         string        `json:"date"`
	PatentType   string        `json:"patent_type,omitempty"`
	Relationship Relationship  `json:"relationship"`

	AllClaimsText         string `json:"all_claims_text"`
	FirstIndependentClaim string `json:"first_independent_claim"`
	InventiveConcept      string `json:"inventive_concept"`

	OverlapsWith       []ptypes.Number `json:"overlaps_with"`
	OverlapExplanation string          `json:"overlap_explanation"`
	Differentiation    string          `json:"differentiation"`
	DocumentURL        string          `json:"document_url"`

	Stage Stage `json:"stage"`
	// FailedAt is the stage the record was advancing to when it errored.
	FailedAt  Stage   `json:"failed_at,omitempty"`
	LastError *string `json:"last_error"`

	// Founding is set for the record added to an empty collection.  Its
	// relationship resolves to original without consulting the classifier.
	Founding bool `json:"founding"`

	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord builds a record in StageRaw.  Relationship starts as unknown and
// is settled by the enrichment state machine.
func NewRecord(id string, number ptypes.Number, title, date string) Record {
	now := time.Now().UTC()
	return Record{
		ID:           id,
		PatentNumber: number,
		Title:        title,
		Date:         date,
		Relationship: RelationshipUnknown,
		OverlapsWith: []ptypes.Number{},
		Stage:        StageRaw,
		AddedAt:      now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.OverlapsWith = append([]ptypes.Number(nil), r.OverlapsWith...)
	if r.LastError != nil {
		msg := *r.LastError
		out.LastError = &msg
	}
	return out
}

// InProgress reports whether enrichment has yet to reach a terminal stage.
func (r Record) InProgress() bool { return !r.Stage.IsTerminal() }

// Errored reports whether enrichment stopped on a failure.
func (r Record) Errored() bool { return r.Stage == StageErrored }

// Summary renders the record as "<number>: <title> (<date>)".
func (r Record) Summary() string {
	return r.PatentNumber.String() + ": " + r.Title + " (" + r.Date + ")"
}

// ─────────────────────────────────────────────────────────────────────────────
// Partial update
// ─────────────────────────────────────────────────────────────────────────────

// Patch carries a partial update for a record.  Nil fields are left alone.
type Patch struct {
	Title                 *string         `json:"title,omitempty"`
	Date                  *string         `json:"date,omitempty"`
	Relationship          *Relationship   `json:"relationship,omitempty"`
	FirstIndependentClaim *string         `json:"first_independent_claim,omitempty"`
	InventiveConcept      *string         `json:"inventive_concept,omitempty"`
	OverlapsWith          []ptypes.Number `json:"overlaps_with,omitempty"`
	OverlapExplanation    *string         `json:"overlap_explanation,omitempty"`
	Differentiation       *string         `json:"differentiation,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Relationship == nil &&
		p.FirstIndependentClaim == nil && p.InventiveConcept == nil &&
		p.OverlapsWith == nil && p.OverlapExplanation == nil && p.Differentiation == nil
}

func (p Patch) apply(r *Record) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Relationship != nil {
		r.Relationship = *p.Relationship
	}
	if p.FirstIndependentClaim != nil {
		r.FirstIndependentClaim = *p.FirstIndependentClaim
	}
	if p.InventiveConcept != nil {
		r.InventiveConcept = *p.InventiveConcept
	}
	if p.OverlapsWith != nil {
		r.OverlapsWith = append([]ptypes.Number(nil), p.OverlapsWith...)
	}
	if p.OverlapExplanation != nil {
		r.OverlapExplanation = *p.OverlapExplanation
	}
	if p.Differentiation != nil {
		r.Differentiation = *p.Differentiation
	}
	r.UpdatedAt = time.Now().UTC()
}

//Personal.AI order the ending
