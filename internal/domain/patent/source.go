// Package patent defines what the acquisition pipeline knows about a single
// patent as reported by external sources, and the contracts those sources
// implement.  Adapters live under internal/infrastructure/source.
package patent

import (
	"context"
	"strings"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// Fallbacks for registry fields that are absent or blank.
const (
	FallbackTitle = "Untitled"
	FallbackDate  = "Unknown date"
	FallbackType  = "utility"
)

// DefaultDocumentBase is the document store used to build predictable links.
const DefaultDocumentBase = "https://patents.google.com"

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// RegistryRecord is the authoritative bibliographic answer for one patent.
type RegistryRecord struct {
	Number     ptypes.Number `json:"number"`
	Title      string        `json:"title"`
	Abstract   string        `json:"abstract,omitempty"`
	Date       string        `json:"date"`
	Type       string        `json:"type"`
	ClaimsText string        `json:"claims_text"`
}

// RegistrySource looks a patent up in the primary registry.
//
// FetchByID returns a NotFound error when no record matches (after any
// retry variants) and an Upstream error for transport or non-2xx failures.
type RegistrySource interface {
	Name() string
	FetchByID(ctx context.Context, number ptypes.Number) (*RegistryRecord, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Document store
// ─────────────────────────────────────────────────────────────────────────────

// Section is one header-delimited block of a parsed document.
type Section struct {
	Header     string              `json:"header"`
	Class      family.SectionClass `json:"class"`
	References []ptypes.Number     `json:"references,omitempty"`
}

// Document is the one parsed document a DocumentSource settled on.
type Document struct {
	Number     ptypes.Number   `json:"number"`
	Variant    string          `json:"variant"`
	URL        string          `json:"url"`
	ClaimsText string          `json:"claims_text"`
	Sections   []Section       `json:"sections,omitempty"`
	Candidates []ptypes.Number `json:"candidates"`
}

// DocumentSource fetches and parses the secondary document for a patent.
//
// FetchDocument returns (nil, nil) when no variant produced a usable
// document.  It only returns an error when the context ends.
type DocumentSource interface {
	Name() string
	FetchDocument(ctx context.Context, number ptypes.Number) (*Document, error)
}

// DocumentURL builds the canonical document link for number under base.
func DocumentURL(base string, number ptypes.Number) string {
	if base == "" {
		base = DefaultDocumentBase
	}
	return strings.TrimRight(base, "/") + "/patent/US" + number.String()
}

//Personal.AI order the ending
