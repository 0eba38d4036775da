package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/FamilyScope/internal/application/acquisition"
	"github.com/turtacn/FamilyScope/internal/application/analysis"
	appFamily "github.com/turtacn/FamilyScope/internal/application/family"
	"github.com/turtacn/FamilyScope/internal/application/importer"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// Views embed the value they render, so JSON output is the value itself.
// String is the text format; TableHeaders and TableRows the table format.

const maxCellWidth = 60

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func joinNumbers(ns []ptypes.Number) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func recordRow(r family.Record) []string {
	return []string{
		r.PatentNumber.String(),
		truncate(r.Title, maxCellWidth),
		r.Date,
		string(r.Relationship),
		string(r.Stage),
	}
}

var recordHeaders = []string{"NUMBER", "TITLE", "DATE", "RELATIONSHIP", "STAGE"}

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

type recordView struct{ family.Record }

func (v recordView) TableHeaders() []string { return recordHeaders }
func (v recordView) TableRows() [][]string  { return [][]string{recordRow(v.Record)} }

func (v recordView) String() string {
	r := v.Record
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", r.Summary())
	fmt.Fprintf(&sb, "  id:           %s\n", r.ID)
	fmt.Fprintf(&sb, "  relationship: %s\n", r.Relationship)
	fmt.Fprintf(&sb, "  stage:        %s\n", r.Stage)
	if r.Errored() && r.LastError != nil {
		fmt.Fprintf(&sb, "  failed at:    %s (%s)\n", r.FailedAt, *r.LastError)
	}
	if r.FirstIndependentClaim != "" {
		fmt.Fprintf(&sb, "  claim 1:      %s\n", truncate(r.FirstIndependentClaim, 200))
	}
	if r.InventiveConcept != "" {
		fmt.Fprintf(&sb, "  concept:      %s\n", r.InventiveConcept)
	}
	if len(r.OverlapsWith) > 0 {
		fmt.Fprintf(&sb, "  overlaps:     %s\n", joinNumbers(r.OverlapsWith))
	}
	if r.Differentiation != "" {
		fmt.Fprintf(&sb, "  differs by:   %s\n", r.Differentiation)
	}
	if r.DocumentURL != "" {
		fmt.Fprintf(&sb, "  document:     %s\n", r.DocumentURL)
	}
	return sb.String()
}

type collectionView struct{ *family.Collection }

func (v collectionView) TableHeaders() []string { return recordHeaders }

func (v collectionView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Records))
	for _, r := range v.Records {
		rows = append(rows, recordRow(r))
	}
	return rows
}

func (v collectionView) String() string {
	if v.Len() == 0 {
		return "Family is empty.\n"
	}
	var sb strings.Builder
	state := "not analyzed"
	if v.Analyzed {
		state = "analyzed"
	}
	fmt.Fprintf(&sb, "Family: %d member(s), %s\n", v.Len(), state)
	for i, r := range v.Records {
		fmt.Fprintf(&sb, "%3d. %s [%s, %s]\n", i+1, r.Summary(), r.Relationship, r.Stage)
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Add / candidates
// ─────────────────────────────────────────────────────────────────────────────

type addView struct{ *appFamily.AddResult }

func (v addView) TableHeaders() []string { return append(append([]string{}, recordHeaders...), "ADDED") }

func (v addView) TableRows() [][]string {
	return [][]string{append(recordRow(v.Record), strconv.FormatBool(v.Added))}
}

func (v addView) String() string {
	var sb strings.Builder
	if v.Added {
		sb.WriteString("Added ")
	} else {
		sb.WriteString("Already in family: ")
	}
	sb.WriteString(recordView{v.Record}.String())
	if v.Degraded {
		sb.WriteString("Document store unavailable; no family candidates were found.\n")
	}
	if len(v.Candidates) > 0 {
		fmt.Fprintf(&sb, "Candidates not yet in family: %s\n", joinNumbers(v.Candidates))
	}
	return sb.String()
}

type candidatesView struct{ *acquisition.Result }

func (v candidatesView) TableHeaders() []string { return []string{"CANDIDATE"} }

func (v candidatesView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Candidates))
	for _, c := range v.Candidates {
		rows = append(rows, []string{c.String()})
	}
	return rows
}

func (v candidatesView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s (%s)\n", v.Number, v.Title, v.Date)
	fmt.Fprintf(&sb, "  claims from: %s\n", v.ClaimsSource)
	if v.Degraded {
		sb.WriteString("  document store unavailable\n")
	}
	if len(v.Candidates) == 0 {
		sb.WriteString("  no candidates\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "  candidates:  %s\n", joinNumbers(v.Candidates))
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Import
// ─────────────────────────────────────────────────────────────────────────────

type reportView struct{ *importer.Report }

func (v reportView) TableHeaders() []string {
	return []string{"IDENTIFIER", "STATUS", "NUMBER", "ERROR"}
}

func (v reportView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Outcomes))
	for _, o := range v.Outcomes {
		msg := o.Error
		if o.ErrorCode != "" {
			msg = o.ErrorCode + " " + msg
		}
		rows = append(rows, []string{o.Identifier, string(o.Status), o.PatentNumber, truncate(msg, maxCellWidth)})
	}
	return rows
}

func (v reportView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Imported %d of %d: %d added, %d duplicate, %d failed, %d skipped\n",
		v.Added+v.Duplicates, v.Total, v.Added, v.Duplicates, v.Failed, v.Skipped)
	if v.Cancelled {
		sb.WriteString("Import was cancelled before finishing.\n")
	}
	for _, o := range v.Outcomes {
		if o.Status == importer.StatusFailed {
			fmt.Fprintf(&sb, "  %s: %s\n", o.Identifier, o.Error)
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Analysis
// ─────────────────────────────────────────────────────────────────────────────

type analysisView struct{ *analysis.FamilyResult }

func (v analysisView) TableHeaders() []string {
	return []string{"NUMBER", "OVERLAPS WITH", "DIFFERENTIATION"}
}

func (v analysisView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		rows = append(rows, []string{e.PatentNumber, strings.Join(e.OverlapsWith, ", "), truncate(e.Differentiation, maxCellWidth)})
	}
	return rows
}

func (v analysisView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analysis applied to %d member(s)\n", v.Applied)
	for _, e := range v.Entries {
		fmt.Fprintf(&sb, "\n%s\n", e.PatentNumber)
		if len(e.OverlapsWith) > 0 {
			fmt.Fprintf(&sb, "  overlaps with: %s\n", strings.Join(e.OverlapsWith, ", "))
		}
		if e.OverlapExplanation != "" {
			fmt.Fprintf(&sb, "  overlap:       %s\n", e.OverlapExplanation)
		}
		if e.Differentiation != "" {
			fmt.Fprintf(&sb, "  differs by:    %s\n", e.Differentiation)
		}
	}
	return sb.String()
}

type comparisonView struct{ *analysis.Comparison }

func (v comparisonView) TableHeaders() []string {
	return []string{"ELEMENT", "STATUS", "ORIGINAL", "LATER"}
}

func (v comparisonView) TableRows() [][]string {
	if v.Result == nil {
		return nil
	}
	rows := make([][]string, 0, len(v.Result.ElementComparison))
	for _, e := range v.Result.ElementComparison {
		rows = append(rows, []string{
			truncate(e.Element, 30), e.Status,
			truncate(e.InOriginal, maxCellWidth/2), truncate(e.InContinuation, maxCellWidth/2),
		})
	}
	return rows
}

func (v comparisonView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original: %s\nLater:    %s\n", v.Original.Summary(), v.Later.Summary())
	if v.Result == nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, "Change:   %s\n", v.Result.ChangeType)
	if v.Result.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", v.Result.Summary)
	}
	if len(v.Result.ElementComparison) > 0 {
		sb.WriteString("\n")
		sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	}
	return sb.String()
}

//Personal.AI order the ending
