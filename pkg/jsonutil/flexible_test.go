package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"string", `"revenue"`, "revenue"},
		{"integer", `42`, "42"},
		{"float", `3.5`, "3.5"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleStringValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleStringSlice(t *testing.T) {
	assert.Equal(t, []string{"csv", "sql"}, FlexibleStringSlice(json.RawMessage(`["csv","sql"]`)))
	assert.Equal(t, []string{"sales.csv"}, FlexibleStringSlice(json.RawMessage(`"sales.csv"`)))
	assert.Equal(t, []string{"1", "2"}, FlexibleStringSlice(json.RawMessage(`[1, 2]`)))
	assert.Nil(t, FlexibleStringSlice(json.RawMessage(`null`)))
}
