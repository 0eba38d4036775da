package family_llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrompts_AllDefined(t *testing.T) {
	p, err := NewPrompts()
	require.NoError(t, err)
	for _, name := range AllPrompts {
		system, _, err := p.Render(name, struct {
			ClaimsText, Title, Claim string
			Existing                 []PatentSummary
			New                      PatentSummary
			Patents                  []PatentSummary
			Original, Continuation   PatentSummary
		}{})
		require.NoError(t, err, name)
		assert.NotEmpty(t, system, name)
	}
}

func TestRender_Concept(t *testing.T) {
	_, user, err := MustPrompts().Render(PromptConcept, conceptData{Title: "Widget", Claim: "A widget."})
	require.NoError(t, err)
	assert.Equal(t, "Patent title: Widget\n\nFirst independent claim:\nA widget.\n\nSummarize the inventive concept:", user)
}

func TestRender_Relationship(t *testing.T) {
	system, user, err := MustPrompts().Render(PromptRelationship, relationshipData{
		Existing: []PatentSummary{
			{Number: "111111", Title: "Gear", Date: "2010-01-01"},
			{Number: "222222", Title: "Gear II", Date: "2012-01-01"},
		},
		New: PatentSummary{Number: "333333", Title: "Gear III", Date: "2015-01-01"},
	})
	require.NoError(t, err)
	assert.Contains(t, system, "Return ONLY one of: continuation, divisional, cip, unknown")
	assert.Equal(t, "Existing patents:\n111111: Gear (2010-01-01)\n222222: Gear II (2012-01-01)\n\nNew patent:\n333333: Gear III (2015-01-01)\n\nRelationship:", user)
}

func TestRender_Family(t *testing.T) {
	_, user, err := MustPrompts().Render(PromptFamily, familyData{Patents: []PatentSummary{
		{Number: "111111", Relationship: "original", Title: "Gear", InventiveConcept: "A gear."},
		{Number: "222222", Relationship: "continuation", Title: "Gear II"},
	}})
	require.NoError(t, err)
	want := "Analyze this patent family:\n\n" +
		"Patent 111111 (original):\nTitle: Gear\nInventive Concept: A gear.\n" +
		"\n---\n\n" +
		"Patent 222222 (continuation):\nTitle: Gear II\nInventive Concept: (none)"
	assert.Equal(t, want, user)
}

func TestRender_Compare(t *testing.T) {
	system, user, err := MustPrompts().Render(PromptCompare, compareData{
		Original:     PatentSummary{Number: "111111", Date: "2010", Claim: " A gear. "},
		Continuation: PatentSummary{Number: "222222", Date: "2012", Claim: "A steel gear."},
	})
	require.NoError(t, err)
	assert.Contains(t, system, "elementComparison")
	assert.Contains(t, system, "preambleStatus")
	assert.Equal(t, "Original patent 111111 (2010):\nA gear.\n\nLater patent 222222 (2012):\nA steel gear.", user)
}

//Personal.AI order the ending
