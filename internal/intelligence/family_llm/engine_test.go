package family_llm

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

type mockAnalyzer struct{ mock.Mock }

func (m *mockAnalyzer) Analyze(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func record(num, title, date string, rel family.Relationship) family.Record {
	r := family.NewRecord("id-"+num, ptypes.MustNormalize(num), title, date)
	r.Relationship = rel
	return r
}

func TestEngine_ExtractFirstClaim(t *testing.T) {
	m := &mockAnalyzer{}
	m.On("Analyze", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "first independent claim")
	}), "Claims text:\n\n1. A gear.\n\n2. The gear of claim 1.").Return("  A gear.\n", nil)

	e := NewEngine(m, nil)
	claim, err := e.ExtractFirstClaim(context.Background(), "1. A gear.\n\n2. The gear of claim 1.")
	require.NoError(t, err)
	assert.Equal(t, "A gear.", claim)
	m.AssertExpectations(t)
}

func TestEngine_ExtractFirstClaim_NoClaims(t *testing.T) {
	m := &mockAnalyzer{}
	e := NewEngine(m, nil)
	_, err := e.ExtractFirstClaim(context.Background(), "   ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInputInvalid))
	m.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_CallFailureCodes(t *testing.T) {
	m := &mockAnalyzer{}
	m.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return("", stderrors.New("boom")).Once()
	m.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return("", errors.Upstream(500, "down")).Once()
	e := NewEngine(m, nil)

	_, err := e.InventiveConcept(context.Background(), "t", "c")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInferenceFailed))

	_, err = e.InventiveConcept(context.Background(), "t", "c")
	assert.True(t, errors.IsUpstream(err))
	assert.Equal(t, 500, errors.UpstreamStatus(err))
}

func TestEngine_Relationship(t *testing.T) {
	tests := []struct {
		answer string
		want   family.Relationship
	}{
		{"continuation", family.RelationshipContinuation},
		{"  Divisional\n", family.RelationshipDivisional},
		{"CIP", family.RelationshipCIP},
		{"original", family.RelationshipUnknown},
		{"It is probably a continuation.", family.RelationshipUnknown},
		{"unknown", family.RelationshipUnknown},
	}
	existing := []family.Record{record("111111", "Gear", "2010-01-01", family.RelationshipOriginal)}
	newRec := record("222222", "Gear II", "2012-01-01", family.RelationshipUnknown)

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			m := &mockAnalyzer{}
			m.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(tt.answer, nil)
			rel, err := NewEngine(m, nil).Relationship(context.Background(), newRec, existing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestEngine_Relationship_NoExisting(t *testing.T) {
	m := &mockAnalyzer{}
	rel, err := NewEngine(m, nil).Relationship(context.Background(), record("1", "", "", ""), nil)
	require.NoError(t, err)
	assert.Equal(t, family.RelationshipOriginal, rel)
	m.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_AnalyzeFamily(t *testing.T) {
	m := &mockAnalyzer{}
	m.On("Analyze", mock.Anything, mock.Anything, mock.MatchedBy(func(u string) bool {
		return strings.Contains(u, "Patent 111111 (original)") && strings.Contains(u, "\n---\n")
	})).Return("```json\n{\"analysis\":[{\"patentNumber\":\"111111\",\"overlapsWith\":[\"222222\"],\"overlapExplanation\":\"gears\",\"differentiation\":\"first\"}]}\n```", nil)

	records := []family.Record{
		record("111111", "Gear", "2010", family.RelationshipOriginal),
		record("222222", "Gear II", "2012", family.RelationshipContinuation),
	}
	out, err := NewEngine(m, nil).AnalyzeFamily(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "111111", out[0].PatentNumber)
	assert.Equal(t, []string{"222222"}, out[0].OverlapsWith)
}

func TestEngine_AnalyzeFamily_ParseFailure(t *testing.T) {
	m := &mockAnalyzer{}
	m.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return("I cannot help with that.", nil)
	_, err := NewEngine(m, nil).AnalyzeFamily(context.Background(), []family.Record{record("1", "", "", "")})
	assert.True(t, errors.IsParseFailure(err))
}

func TestEngine_CompareClaims(t *testing.T) {
	m := &mockAnalyzer{}
	m.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(`{
		"changeType": "Narrowing",
		"summary": "Adds steel.",
		"preambleStatus": "same",
		"elementComparison": [
			{"element": "gear", "inOriginal": "a gear", "inContinuation": "a steel gear", "status": "MODIFIED"},
			{"element": "shaft", "inOriginal": "", "inContinuation": "a shaft", "status": "new"}
		]}`, nil)

	a := record("111111", "Gear", "2010", family.RelationshipOriginal)
	b := record("222222", "Gear II", "2012", family.RelationshipContinuation)
	cmp, err := NewEngine(m, nil).CompareClaims(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, ChangeNarrowing, cmp.ChangeType)
	assert.Equal(t, "same", cmp.PreambleStatus)
	require.Len(t, cmp.ElementComparison, 2)
	assert.Equal(t, "modified", cmp.ElementComparison[0].Status)
	assert.Equal(t, "modified", cmp.ElementComparison[1].Status)
}

func TestNormalizeChangeType(t *testing.T) {
	assert.Equal(t, ChangeBroadening, NormalizeChangeType(" broadening "))
	assert.Equal(t, ChangeSubstantiallySimilar, NormalizeChangeType("substantially_similar"))
	assert.Equal(t, ChangeDifferentScope, NormalizeChangeType("wider"))
	assert.Equal(t, ChangeDifferentScope, NormalizeChangeType(""))
}

//Personal.AI order the ending
