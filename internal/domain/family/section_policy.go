package family

import (
	"fmt"
	"regexp"
	"strings"
)

// SectionClass labels a cross-reference section of a patent document.
type SectionClass string

const (
	SectionFamily   SectionClass = "family"
	SectionCitation SectionClass = "citation"
	SectionIgnored  SectionClass = "ignored"
)

// DefaultIncludePatterns match headers that list true family relations.
var DefaultIncludePatterns = []string{
	`(?i)\bpriority\b`,
	`(?i)\brelated\b`,
	`(?i)\bparent\b`,
	`(?i)\bchild(ren)?\b`,
	`(?i)\bfamil(y|ies)\b`,
	`(?i)\bcontinuations?\b`,
	`(?i)\balso\s+published\b`,
	`(?i)\bworldwide\s+applications?\b`,
}

// DefaultExcludePatterns match headers that list prior art or look-alikes.
// They win over the include set, so "Family Cites Families" is a citation.
var DefaultExcludePatterns = []string{
	`(?i)\bcit(ed|es|ing|ations?)\b`,
	`(?i)\bsimilar\s+documents?\b`,
	`(?i)\bnon-patent\b`,
	`(?i)\breferences?\s+cited\b`,
}

// SectionPolicy is an ordered include/exclude pattern table for section
// headers.  The zero value classifies everything as ignored.
type SectionPolicy struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// NewSectionPolicy compiles the given pattern sets.  Empty sets fall back to
// the defaults.
func NewSectionPolicy(include, exclude []string) (*SectionPolicy, error) {
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	if len(exclude) == 0 {
		exclude = DefaultExcludePatterns
	}
	p := &SectionPolicy{}
	for _, expr := range include {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("family: include pattern %q: %w", expr, err)
		}
		p.include = append(p.include, re)
	}
	for _, expr := range exclude {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("family: exclude pattern %q: %w", expr, err)
		}
		p.exclude = append(p.exclude, re)
	}
	return p, nil
}

// DefaultSectionPolicy returns the policy built from the default tables.
func DefaultSectionPolicy() *SectionPolicy {
	p, err := NewSectionPolicy(nil, nil)
	if err != nil {
		panic(err)
	}
	return p
}

// Classify labels one header.  Exclusion takes precedence over inclusion.
func (p *SectionPolicy) Classify(header string) SectionClass {
	h := strings.TrimSpace(header)
	if h == "" {
		return SectionIgnored
	}
	for _, re := range p.exclude {
		if re.MatchString(h) {
			return SectionCitation
		}
	}
	for _, re := range p.include {
		if re.MatchString(h) {
			return SectionFamily
		}
	}
	return SectionIgnored
}

// ClassifyAll labels every header.  Duplicate headers share one entry.
func (p *SectionPolicy) ClassifyAll(headers []string) map[string]SectionClass {
	out := make(map[string]SectionClass, len(headers))
	for _, h := range headers {
		out[h] = p.Classify(h)
	}
	return out
}

//Personal.AI order the ending
