package jsonutil

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{name: "float64", input: 71.9, want: 71.9, wantOK: true},
		{name: "int", input: 42, want: 42, wantOK: true},
		{name: "int64", input: int64(-3), want: -3, wantOK: true},
		{name: "json number", input: json.Number("12.5"), want: 12.5, wantOK: true},
		{name: "numeric string", input: "95", want: 95, wantOK: true},
		{name: "numeric string with spaces", input: "  40.25 ", want: 40.25, wantOK: true},
		{name: "percent string", input: "87.5%", want: 87.5, wantOK: true},
		{name: "non numeric string", input: "Intro", wantOK: false},
		{name: "empty string", input: "", wantOK: false},
		{name: "bare percent", input: "%", wantOK: false},
		{name: "nil", input: nil, wantOK: false},
		{name: "bool", input: true, wantOK: false},
		{name: "NaN", input: math.NaN(), wantOK: false},
		{name: "infinity string", input: "Inf", wantOK: false},
		{name: "slice", input: []any{1}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleFloat(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "string", input: "hello", want: "hello"},
		{name: "integral float", input: float64(42), want: "42"},
		{name: "fractional float", input: 3.14, want: "3.14"},
		{name: "int", input: 7, want: "7"},
		{name: "json number", input: json.Number("7"), want: "7"},
		{name: "bool", input: false, want: "false"},
		{name: "nil", input: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleString(tt.input))
		})
	}
}

func TestFlexibleString_IntAndFloatAgree(t *testing.T) {
	assert.Equal(t, FlexibleString(5), FlexibleString(5.0))
	assert.Equal(t, FlexibleString(json.Number("5")), FlexibleString(float64(5)))
}
