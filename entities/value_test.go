package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueInfersKind(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Value
	}{
		{"bool true", `true`, BoolValue(true)},
		{"bool false", `false`, BoolValue(false)},
		{"integer", `42`, NumberValue(42)},
		{"float", `68.5`, NumberValue(68.5)},
		{"negative", `-3.2`, NumberValue(-3.2)},
		{"string", `"mash-in"`, StringValue("mash-in")},
		{"numeric string stays string", `"42"`, StringValue("42")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseValueObject(t *testing.T) {
	got, err := ParseValue(json.RawMessage(`{"r":255,"g":128,"b":0}`))
	require.NoError(t, err)
	assert.Equal(t, ValueKindJSON, got.Kind)
	assert.JSONEq(t, `{"r":255,"g":128,"b":0}`, string(got.Raw))
}

func TestParseValueRejectsGarbage(t *testing.T) {
	_, err := ParseValue(json.RawMessage(`not json`))
	assert.Error(t, err)

	_, err = ParseValue(nil)
	assert.Error(t, err)
}

func TestValueEncodeRoundTrip(t *testing.T) {
	for _, v := range []Value{
		BoolValue(true),
		NumberValue(72.5),
		StringValue("fermenting"),
	} {
		parsed, err := ParseValue(json.RawMessage(v.Encode()))
		require.NoError(t, err)
		assert.True(t, parsed.Equal(v))
	}
}

func TestValueMatchesType(t *testing.T) {
	assert.True(t, BoolValue(true).MatchesType(ValueTypeBool))
	assert.True(t, NumberValue(1).MatchesType(ValueTypeInt))
	assert.True(t, NumberValue(1.5).MatchesType(ValueTypeFloat))
	assert.True(t, StringValue("x").MatchesType(ValueTypeString))
	// json endpoints accept anything
	assert.True(t, BoolValue(true).MatchesType(ValueTypeJSON))

	assert.False(t, NumberValue(1).MatchesType(ValueTypeBool))
	assert.False(t, StringValue("true").MatchesType(ValueTypeBool))
	assert.False(t, BoolValue(true).MatchesType(ValueTypeFloat))
}

func TestValueEqualAcrossKinds(t *testing.T) {
	assert.False(t, BoolValue(true).Equal(NumberValue(1)))
	assert.False(t, StringValue("1").Equal(NumberValue(1)))
	assert.True(t, NumberValue(0).Equal(NumberValue(0)))
}
