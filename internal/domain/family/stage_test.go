package family

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/FamilyScope/pkg/errors"
)

func TestStage_Chain(t *testing.T) {
	t.Parallel()
	s := StageRaw
	var seen []Stage
	for {
		seen = append(seen, s)
		n, ok := s.Next()
		if !ok {
			break
		}
		assert.Equal(t, s.Ordinal()+1, n.Ordinal())
		s = n
	}
	assert.Equal(t, []Stage{StageRaw, StageClaimExtracted, StageConceptGenerated, StageRelationshipResolved}, seen)
	assert.True(t, StageRelationshipResolved.IsTerminal())
	assert.True(t, StageErrored.IsTerminal())
	assert.Equal(t, -1, StageErrored.Ordinal())
	assert.False(t, Stage("done").IsValid())
}

func TestTransition_HappyPath(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-1", "10123456", "Widget", "2020-01-02")
	r.AllClaimsText = "1. A widget."

	r, err := Transition(r, StageResult{Stage: StageClaimExtracted, FirstIndependentClaim: "A widget."})
	require.NoError(t, err)
	assert.Equal(t, StageClaimExtracted, r.Stage)
	assert.Equal(t, "A widget.", r.FirstIndependentClaim)

	r, err = Transition(r, StageResult{Stage: StageConceptGenerated, InventiveConcept: "Widgets."})
	require.NoError(t, err)
	assert.Equal(t, "Widgets.", r.InventiveConcept)

	r, err = Transition(r, StageResult{Stage: StageRelationshipResolved, Relationship: RelationshipCIP})
	require.NoError(t, err)
	assert.Equal(t, StageRelationshipResolved, r.Stage)
	assert.Equal(t, RelationshipCIP, r.Relationship)
	assert.False(t, r.InProgress())
}

func TestTransition_IsPure(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-1", "10123456", "Widget", "")
	_, err := Transition(r, StageResult{Stage: StageClaimExtracted, FirstIndependentClaim: "x"})
	require.NoError(t, err)
	assert.Equal(t, StageRaw, r.Stage)
	assert.Empty(t, r.FirstIndependentClaim)
}

func TestTransition_RejectsSkipsAndTerminal(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-1", "10123456", "Widget", "")

	_, err := Transition(r, StageResult{Stage: StageConceptGenerated})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnrichmentStageInvalid))

	r.Stage = StageRelationshipResolved
	_, err = Transition(r, StageResult{Stage: StageRelationshipResolved})
	assert.Error(t, err)

	r.Stage = StageErrored
	_, err = Transition(r, StageResult{Stage: StageClaimExtracted})
	assert.Error(t, err)
}

func TestTransition_FailureKeepsPriorData(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-1", "10123456", "Widget", "2020")
	r, _ = Transition(r, StageResult{Stage: StageClaimExtracted, FirstIndependentClaim: "A widget."})

	r, err := Transition(r, StageResult{Stage: StageConceptGenerated, Err: errors.New("upstream 503")})
	require.NoError(t, err)
	assert.Equal(t, StageErrored, r.Stage)
	assert.Equal(t, StageConceptGenerated, r.FailedAt)
	require.NotNil(t, r.LastError)
	assert.Equal(t, "upstream 503", *r.LastError)
	assert.Equal(t, "Widget", r.Title)
	assert.Equal(t, "A widget.", r.FirstIndependentClaim)
}

func TestTransition_FoundingRecordIsOriginal(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-1", "10123456", "Widget", "")
	r.Founding = true
	r.Stage = StageConceptGenerated

	r, err := Transition(r, StageResult{Stage: StageRelationshipResolved, Relationship: RelationshipContinuation})
	require.NoError(t, err)
	assert.Equal(t, RelationshipOriginal, r.Relationship)
}

func TestTransition_NonFoundingCannotBeOriginal(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-2", "10123457", "Widget", "")
	r.Stage = StageConceptGenerated

	r, err := Transition(r, StageResult{Stage: StageRelationshipResolved, Relationship: RelationshipOriginal})
	require.NoError(t, err)
	assert.Equal(t, RelationshipUnknown, r.Relationship)
}

func TestRewind(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-1", "10123456", "Widget", "")
	r, _ = Transition(r, StageResult{Stage: StageClaimExtracted, FirstIndependentClaim: "A widget."})
	r, _ = Transition(r, StageResult{Stage: StageConceptGenerated, Err: errors.New("x")})

	back, err := Rewind(r)
	require.NoError(t, err)
	assert.Equal(t, StageClaimExtracted, back.Stage)
	assert.Nil(t, back.LastError)
	assert.Empty(t, back.FailedAt)
	assert.Equal(t, "A widget.", back.FirstIndependentClaim)

	_, err = Rewind(back)
	assert.Error(t, err)
}

func TestRewind_UnknownFailedAtFallsBackToRaw(t *testing.T) {
	t.Parallel()
	r := NewRecord("rec-1", "10123456", "Widget", "")
	r.Stage = StageErrored

	back, err := Rewind(r)
	require.NoError(t, err)
	assert.Equal(t, StageRaw, back.Stage)
}

//Personal.AI order the ending
