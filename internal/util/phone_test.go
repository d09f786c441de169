package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"07700 900123", "+447700900123"},
		{"0770-090-0123", "+447700900123"},
		{"+44 7700 900123", "+447700900123"},
		{"447700900123", "+447700900123"},
		{"00447700900123", "+447700900123"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "input %q", tt.in)
	}
}

func TestPounds(t *testing.T) {
	assert.Equal(t, "12.50", Pounds(1250))
	assert.Equal(t, "0.05", Pounds(5))
	assert.Equal(t, "0.00", Pounds(0))
	assert.Equal(t, "-3.20", Pounds(-320))
}
