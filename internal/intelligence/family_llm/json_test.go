package family_llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/pkg/errors"
)

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "Here you go:\n```json\n{\"a\":{\"b\":2}}\n```\nDone.", `{"a":{"b":2}}`, true},
		{"brace in string", `x {"a":"}{"} y {"b":1}`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"say \"}\" ok"}`, `{"a":"say \"}\" ok"}`, true},
		{"first of two", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"none", "no json here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	var v struct {
		Analysis []struct {
			PatentNumber string `json:"patentNumber"`
		} `json:"analysis"`
	}
	require.NoError(t, ExtractJSONObject(`Sure! {"analysis":[{"patentNumber":"123"}]} Hope that helps.`, &v))
	require.Len(t, v.Analysis, 1)
	assert.Equal(t, "123", v.Analysis[0].PatentNumber)
}

func TestExtractJSONObject_Failures(t *testing.T) {
	var v map[string]interface{}

	err := ExtractJSONObject("nothing to see", &v)
	assert.True(t, errors.IsParseFailure(err))

	err = ExtractJSONObject(`{"a": nope}`, &v)
	assert.True(t, errors.IsParseFailure(err))

	var wrongShape struct {
		A int `json:"a"`
	}
	err = ExtractJSONObject(`{"a":"text"}`, &wrongShape)
	assert.True(t, errors.IsParseFailure(err))
}

//Personal.AI order the ending
