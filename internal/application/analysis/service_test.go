package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/storage/local"
	"github.com/turtacn/FamilyScope/internal/intelligence/family_llm"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

type mockEngine struct{ mock.Mock }

func (m *mockEngine) AnalyzeFamily(ctx context.Context, records []family.Record) ([]family.OverlapAnalysis, error) {
	args := m.Called(ctx, records)
	out, _ := args.Get(0).([]family.OverlapAnalysis)
	return out, args.Error(1)
}

func (m *mockEngine) CompareClaims(ctx context.Context, original, later family.Record) (*family_llm.ClaimComparison, error) {
	args := m.Called(ctx, original, later)
	out, _ := args.Get(0).(*family_llm.ClaimComparison)
	return out, args.Error(1)
}

func member(id, num, date, claim, concept string) family.Record {
	r := family.NewRecord(id, ptypes.MustNormalize(num), "Title "+num, date)
	r.FirstIndependentClaim = claim
	r.InventiveConcept = concept
	r.Stage = family.StageRelationshipResolved
	return r
}

func seeded(t *testing.T, recs ...family.Record) *local.MemoryStore {
	t.Helper()
	s := local.NewMemoryStore()
	_, err := family.Mutate(context.Background(), s, func(c *family.Collection) error {
		for _, r := range recs {
			if err := c.Add(r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return s
}

func TestAnalyzeFamily_AppliesEntries(t *testing.T) {
	store := seeded(t,
		member("a", "111111", "2010-01-01", "A gear.", "Gears."),
		member("b", "222222", "2012-01-01", "A steel gear.", "Steel gears."),
		member("c", "333333", "2013-01-01", "", ""),
	)
	engine := &mockEngine{}
	engine.On("AnalyzeFamily", mock.Anything, mock.MatchedBy(func(rs []family.Record) bool { return len(rs) == 2 })).
		Return([]family.OverlapAnalysis{
			{PatentNumber: "US111,111", OverlapsWith: []string{"222222"}, OverlapExplanation: "both gears", Differentiation: "first"},
			{PatentNumber: "999999", OverlapsWith: []string{"111111"}},
		}, nil)

	res, err := NewService(store, engine, nil).AnalyzeFamily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.True(t, res.Collection.Analyzed)

	c, _ := store.Load(context.Background())
	a, _ := c.Get("a")
	assert.Equal(t, []ptypes.Number{"222222"}, a.OverlapsWith)
	assert.Equal(t, "both gears", a.OverlapExplanation)
	assert.True(t, c.Analyzed)
}

func TestAnalyzeFamily_TooSmall(t *testing.T) {
	store := seeded(t, member("a", "111111", "2010", "A gear.", "Gears."), member("b", "222222", "2011", "", ""))
	engine := &mockEngine{}
	_, err := NewService(store, engine, nil).AnalyzeFamily(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeFamilyTooSmall))
	engine.AssertNotCalled(t, "AnalyzeFamily", mock.Anything, mock.Anything)
}

func TestAnalyzeFamily_ParseFailureLeavesFamily(t *testing.T) {
	store := seeded(t, member("a", "111111", "2010", "x", "Gears."), member("b", "222222", "2011", "y", "More gears."))
	engine := &mockEngine{}
	engine.On("AnalyzeFamily", mock.Anything, mock.Anything).Return(nil, errors.ParseFailure("no json", nil))

	_, err := NewService(store, engine, nil).AnalyzeFamily(context.Background())
	assert.True(t, errors.IsParseFailure(err))
	c, _ := store.Load(context.Background())
	assert.False(t, c.Analyzed)
}

func TestCompareClaims_OrdersByDate(t *testing.T) {
	store := seeded(t,
		member("late", "222222", "2015-06-01", "A steel gear.", "c"),
		member("early", "111111", "March 3, 2010", "A gear.", "c"),
	)
	engine := &mockEngine{}
	want := &family_llm.ClaimComparison{ChangeType: family_llm.ChangeNarrowing, Summary: "adds steel"}
	engine.On("CompareClaims", mock.Anything,
		mock.MatchedBy(func(r family.Record) bool { return r.ID == "early" }),
		mock.MatchedBy(func(r family.Record) bool { return r.ID == "late" })).Return(want, nil)

	out, err := NewService(store, engine, nil, WithDiffer(NewWordDiffer())).
		CompareClaims(context.Background(), "US222,222", "early")
	require.NoError(t, err)
	assert.Equal(t, "early", out.Original.ID)
	assert.Equal(t, "late", out.Later.ID)
	assert.Same(t, want, out.Result)
	assert.Equal(t, []Span{{SpanEqual, "A "}, {SpanInsert, "steel "}, {SpanEqual, "gear."}}, out.Redline)
}

func TestCompareClaims_Errors(t *testing.T) {
	store := seeded(t,
		member("a", "111111", "2010", "A gear.", "c"),
		member("b", "222222", "2011", "", "c"),
	)
	svc := NewService(store, &mockEngine{}, nil)

	_, err := svc.CompareClaims(context.Background(), "a", "a")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.CompareClaims(context.Background(), "a", "333333")
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.CompareClaims(context.Background(), "a", "b")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIInputInvalid))
}

func TestOrderByDate(t *testing.T) {
	rec := func(id, date string) family.Record { return family.Record{ID: id, Date: date} }

	tests := []struct {
		name      string
		a, b      family.Record
		wantFirst string
	}{
		{"already ordered", rec("a", "2010-01-01"), rec("b", "2012-01-01"), "a"},
		{"reversed", rec("a", "2012-01-01"), rec("b", "2010-01-01"), "b"},
		{"unknown sorts last", rec("a", "Unknown date"), rec("b", "2012"), "b"},
		{"both unknown keep order", rec("a", "Unknown date"), rec("b", ""), "a"},
		{"same date keeps order", rec("a", "2010"), rec("b", "2010-01-01"), "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, _ := OrderByDate(tt.a, tt.b)
			assert.Equal(t, tt.wantFirst, first.ID)
		})
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2019-05-01", "2019/05/01", "May 1, 2019", "Jan 1, 2019", "2019-05", "2019"} {
		_, ok := ParseDate(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseDate("Unknown date")
	assert.False(t, ok)
}

//Personal.AI order the ending
