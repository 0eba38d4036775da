package patentsview

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// oneOrMany decodes a JSON value that the registry returns either as a
// single object or as a list of objects.  null decodes to an empty slice.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*o = nil
		return nil
	}
	if trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*o = []T{one}
	return nil
}

// flexInt accepts a number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(trimmed))
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Requests
// ─────────────────────────────────────────────────────────────────────────────

type query struct {
	Q map[string]string   `json:"q"`
	F []string            `json:"f"`
	S []map[string]string `json:"s,omitempty"`
	O map[string]any      `json:"o,omitempty"`
}

var patentFields = []string{
	"patent_number",
	"patent_title",
	"patent_abstract",
	"patent_date",
	"patent_type",
	"app_date",
}

var claimFields = []string{
	"patent_number",
	"claim_sequence",
	"claim_number",
	"claim_text",
}

func patentQuery(number string) query {
	return query{
		Q: map[string]string{"patent_number": number},
		F: patentFields,
		O: map[string]any{"include_subentity_total_counts": false},
	}
}

func claimsQuery(number string) query {
	return query{
		Q: map[string]string{"patent_number": number},
		F: claimFields,
		S: []map[string]string{{"claim_sequence": "asc"}},
		O: map[string]any{"per_page": 1000},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Responses
// ─────────────────────────────────────────────────────────────────────────────

type application struct {
	AppDate string `json:"app_date"`
}

type patentRow struct {
	PatentNumber string                 `json:"patent_number"`
	Title        string                 `json:"patent_title"`
	Abstract     string                 `json:"patent_abstract"`
	Date         string                 `json:"patent_date"`
	AppDate      string                 `json:"app_date"`
	Type         string                 `json:"patent_type"`
	Applications oneOrMany[application] `json:"applications"`
	Claims       oneOrMany[claimRow]    `json:"claims"`
}

type patentsResponse struct {
	Patents oneOrMany[patentRow] `json:"patents"`
	Count   flexInt              `json:"count"`
	Total   flexInt              `json:"total_patent_count"`
}

type claimRow struct {
	PatentNumber string  `json:"patent_number"`
	Sequence     flexInt `json:"claim_sequence"`
	Number       string  `json:"claim_number"`
	Text         string  `json:"claim_text"`
}

type claimsResponse struct {
	Claims oneOrMany[claimRow] `json:"claims"`
	Count  flexInt             `json:"count"`
}

// errorBody covers the error shapes the registry and its gateways emit.
type errorBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e errorBody) text() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.Message != "":
		return e.Message
	}
	return e.Detail
}

//Personal.AI order the ending
