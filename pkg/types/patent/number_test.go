package patent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

func TestNormalize_EquivalentForms(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"US 10,123,456",
		"10123456",
		"us10123456",
		"  Us 10 123 456 ",
		"US10,123,456",
		"10,123,456",
		"uS\t10123456",
	}
	for _, in := range inputs {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, Number("10123456"), got, in)
	}
}

func TestNormalize_UppercasesRemainder(t *testing.T) {
	t.Parallel()

	got, err := Normalize("us re45,123")
	require.NoError(t, err)
	assert.Equal(t, Number("RE45123"), got)
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "US", "us ", ",,", "US , ,"} {
		_, err := Normalize(in)
		require.Error(t, err, "%q", in)
		assert.True(t, errors.IsInvalidIdentifier(err), "%q", in)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Number
		want string
	}{
		{"10123456", "US10,123,456"},
		{"123456", "US123,456"},
		{"1234567", "US1,234,567"},
		{"999", "US999"},
		{"RE45123", "USRE45,123"},
		{"", UnknownNumber},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Format(), string(tc.in))
	}
}

func TestFormat_RoundTripsThroughNormalize(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"US 10,123,456", "7654321", "us re45123", "D123456"} {
		n, err := Normalize(raw)
		require.NoError(t, err)
		again, err := Normalize(n.Format())
		require.NoError(t, err)
		assert.Equal(t, n, again, raw)
	}
}

func TestZeroPad(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Number
		want Number
	}{
		{"7654321", "07654321"},
		{"123", "00000123"},
		{"10123456", "10123456"},
		{"123456789", "123456789"},
		{"RE45123", "RE45123"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.ZeroPad(), string(tc.in))
	}
	assert.True(t, Number("7654321").Padded())
	assert.False(t, Number("10123456").Padded())
}

func TestIsNumericAndDigitCount(t *testing.T) {
	t.Parallel()

	assert.True(t, Number("0123").IsNumeric())
	assert.False(t, Number("RE123").IsNumeric())
	assert.False(t, Number("").IsNumeric())
	assert.Equal(t, 3, Number("RE123").DigitCount())
}

func TestMustNormalize_Panics(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Number("10123456"), MustNormalize("US10123456"))
	assert.Panics(t, func() { MustNormalize(" ") })
}

//Personal.AI order the ending
