package family_llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// ---------------------------------------------------------------------------
// Prompt names
// ---------------------------------------------------------------------------

// PromptName identifies one system/user template pair.
type PromptName string

const (
	PromptFirstClaim   PromptName = "first_claim"
	PromptConcept      PromptName = "concept"
	PromptRelationship PromptName = "relationship"
	PromptFamily       PromptName = "family"
	PromptCompare      PromptName = "compare"
)

// AllPrompts lists every built-in prompt.
var AllPrompts = []PromptName{PromptFirstClaim, PromptConcept, PromptRelationship, PromptFamily, PromptCompare}

// ---------------------------------------------------------------------------
// Template data
// ---------------------------------------------------------------------------

// PatentSummary is the per-record view handed to templates.
type PatentSummary struct {
	Number           string
	Title            string
	Date             string
	Relationship     string
	Claim            string
	InventiveConcept string
}

type firstClaimData struct{ ClaimsText string }

type conceptData struct {
	Title string
	Claim string
}

type relationshipData struct {
	Existing []PatentSummary
	New      PatentSummary
}

type familyData struct{ Patents []PatentSummary }

type compareData struct {
	Original     PatentSummary
	Continuation PatentSummary
}

// ---------------------------------------------------------------------------
// Prompts
// ---------------------------------------------------------------------------

// Prompts renders the built-in templates.
type Prompts struct {
	tmpl *template.Template
}

// NewPrompts parses the built-in templates.
func NewPrompts() (*Prompts, error) {
	t, err := template.New("family_llm").Funcs(template.FuncMap{
		"trim":   strings.TrimSpace,
		"orNone": orNone,
	}).Parse(builtinTemplates)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt templates: %w", err)
	}
	for _, name := range AllPrompts {
		for _, part := range []string{"system", "user"} {
			if t.Lookup(string(name)+"."+part) == nil {
				return nil, fmt.Errorf("prompt %s.%s is not defined", name, part)
			}
		}
	}
	return &Prompts{tmpl: t}, nil
}

// MustPrompts is NewPrompts that panics; the templates are compiled in.
func MustPrompts() *Prompts {
	p, err := NewPrompts()
	if err != nil {
		panic(err)
	}
	return p
}

// Render returns the system and user prompt for name.
func (p *Prompts) Render(name PromptName, data interface{}) (string, string, error) {
	system, err := p.exec(string(name)+".system", data)
	if err != nil {
		return "", "", err
	}
	user, err := p.exec(string(name)+".user", data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func (p *Prompts) exec(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering prompt %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// ---------------------------------------------------------------------------
// Built-in templates
// ---------------------------------------------------------------------------

const builtinTemplates = `
{{define "first_claim.system"}}
You are a patent claim analyst. Find the first independent claim in the claims text you are given.
A claim is independent when it stands on its own and does not refer back to another claim, as in "the method of claim 1".
Return only the text of that claim. Leave out the claim number and add no commentary.
{{end}}

{{define "first_claim.user"}}
Claims text:

{{.ClaimsText}}
{{end}}

{{define "concept.system"}}
You are a patent analyst. State the core inventive concept of a patent claim in one or two sentences.
Describe what is new about the invention in technical terms and leave out boilerplate.
Do not open with "This claim" or "The invention".
{{end}}

{{define "concept.user"}}
Patent title: {{.Title}}

First independent claim:
{{.Claim}}

Summarize the inventive concept:
{{end}}

{{define "relationship.system"}}
You are a patent analyst. Decide how a newly added patent relates to the patents already in a family.
Use the titles and dates to choose one of:
- continuation: same disclosure, filed later, pursuing further claims
- divisional: carved out of an earlier application after a restriction requirement
- cip: continuation-in-part, an earlier disclosure plus new matter
Return ONLY one of: continuation, divisional, cip, unknown
{{end}}

{{define "relationship.user"}}
Existing patents:
{{range .Existing}}{{.Number}}: {{.Title}} ({{.Date}})
{{end}}
New patent:
{{.New.Number}}: {{.New.Title}} ({{.New.Date}})

Relationship:
{{end}}

{{define "family.system"}}
You are a patent family analyst. Compare the inventive concepts of the patents in one family.
For every patent, list the other family members whose concepts overlap with it and explain what sets it apart.
Answer with JSON only, in exactly this shape:
{
  "analysis": [
    {
      "patentNumber": "string",
      "overlapsWith": ["patent numbers"],
      "overlapExplanation": "which concepts overlap",
      "differentiation": "what is unique to this patent"
    }
  ]
}
{{end}}

{{define "family.user"}}
Analyze this patent family:

{{range $i, $p := .Patents}}{{if $i}}
---

{{end}}Patent {{$p.Number}} ({{$p.Relationship}}):
Title: {{$p.Title}}
Inventive Concept: {{orNone $p.InventiveConcept}}
{{end}}
{{end}}

{{define "compare.system"}}
You are a patent claim analyst. Compare the first independent claim of an original patent with the first independent claim of a later family member.
Break the claims into elements and classify each element as same, modified, added or removed.
Classify the overall change as one of: narrowing, broadening, different_scope, substantially_similar.
Answer with JSON only, in exactly this shape:
{
  "changeType": "narrowing | broadening | different_scope | substantially_similar",
  "summary": "one or two sentences",
  "preambleStatus": "same | modified",
  "elementComparison": [
    {
      "element": "short label",
      "inOriginal": "text from the original claim or empty",
      "inContinuation": "text from the later claim or empty",
      "status": "same | modified | added | removed"
    }
  ]
}
{{end}}

{{define "compare.user"}}
Original patent {{.Original.Number}} ({{.Original.Date}}):
{{trim .Original.Claim}}

Later patent {{.Continuation.Number}} ({{.Continuation.Date}}):
{{trim .Continuation.Claim}}
{{end}}
`

//Personal.AI order the ending
