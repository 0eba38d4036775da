package family

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

func mustNumber(t *testing.T, raw string) ptypes.Number {
	t.Helper()
	n, err := ptypes.Normalize(raw)
	require.NoError(t, err)
	return n
}

func TestCollection_AddMarksFounding(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	require.NoError(t, c.Add(NewRecord("a", "10123456", "A", "")))
	require.NoError(t, c.Add(NewRecord("b", "10123457", "B", "")))

	a, _ := c.Get("a")
	b, _ := c.Get("b")
	assert.True(t, a.Founding)
	assert.False(t, b.Founding)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []ptypes.Number{"10123456", "10123457"}, c.Numbers())
}

func TestCollection_UniquenessAcrossRawForms(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	require.NoError(t, c.Add(NewRecord("a", mustNumber(t, "US 10,123,456"), "A", "")))

	err := c.Add(NewRecord("b", mustNumber(t, "us10123456"), "A again", ""))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePatentAlreadyExists))
	assert.Equal(t, 1, c.Len())
}

func TestCollection_AddRejectsEmptyNumber(t *testing.T) {
	t.Parallel()
	err := NewCollection().Add(NewRecord("a", "", "A", ""))
	assert.True(t, apperrors.IsInvalidIdentifier(err))
}

func TestCollection_AddResetsAnalyzed(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	c.Analyzed = true
	require.NoError(t, c.Add(NewRecord("a", "10123456", "A", "")))
	assert.False(t, c.Analyzed)
}

func TestCollection_ReplaceAndUpdate(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	require.NoError(t, c.Add(NewRecord("a", "10123456", "A", "")))

	r, _ := c.Get("a")
	r.InventiveConcept = "concept"
	require.NoError(t, c.Replace(r))
	got, _ := c.Get("a")
	assert.Equal(t, "concept", got.InventiveConcept)

	title := "Renamed"
	updated, err := c.Update("a", Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "concept", updated.InventiveConcept)

	bad := Relationship("sibling")
	_, err = c.Update("a", Patch{Relationship: &bad})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	_, err = c.Update("zzz", Patch{Title: &title})
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(c.Replace(NewRecord("zzz", "1", "", ""))))
}

func TestCollection_RemoveAndClear(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	require.NoError(t, c.Add(NewRecord("a", "10123456", "A", "")))
	require.NoError(t, c.Add(NewRecord("b", "10123457", "B", "")))
	c.Analyzed = true

	removed, err := c.Remove("a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)
	assert.False(t, c.Analyzed)
	assert.False(t, c.Contains("10123456"))
	assert.True(t, c.Contains("10123457"))

	_, err = c.Remove("a")
	assert.True(t, apperrors.IsNotFound(err))

	c.Version = 7
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(7), c.Version)
	assert.False(t, c.ClearedAt.IsZero())
}

func TestCollection_FindByNumber(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	require.NoError(t, c.Add(NewRecord("a", "10123456", "A", "")))

	r, ok := c.FindByNumber("10123456")
	assert.True(t, ok)
	assert.Equal(t, "a", r.ID)

	_, ok = c.FindByNumber("1")
	assert.False(t, ok)
}

func TestCollection_ApplyAnalysis(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	require.NoError(t, c.Add(NewRecord("a", "10123456", "A", "")))
	require.NoError(t, c.Add(NewRecord("b", "10123457", "B", "")))

	n := c.ApplyAnalysis([]OverlapAnalysis{
		{PatentNumber: "US10,123,456", OverlapsWith: []string{"10123457", "10123456"}, OverlapExplanation: "same widget", Differentiation: "first"},
		{PatentNumber: "99999999", OverlapsWith: []string{"10123456"}},
		{PatentNumber: "", OverlapsWith: nil},
	})

	assert.Equal(t, 1, n)
	assert.True(t, c.Analyzed)
	a, _ := c.Get("a")
	assert.Equal(t, []ptypes.Number{"10123457"}, a.OverlapsWith, "self references are dropped")
	assert.Equal(t, "same widget", a.OverlapExplanation)
	b, _ := c.Get("b")
	assert.Empty(t, b.OverlapsWith)
}

func TestCollection_CloneIsDeep(t *testing.T) {
	t.Parallel()
	c := NewCollection()
	require.NoError(t, c.Add(NewRecord("a", "10123456", "A", "")))

	cp := c.Clone()
	cp.Records[0].Title = "changed"
	a, _ := c.Get("a")
	assert.Equal(t, "A", a.Title)
}

//Personal.AI order the ending
