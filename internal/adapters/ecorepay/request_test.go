package ecorepay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRegion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "CA", expected: "CA"},
		{input: "Alabama", expected: "Alabama"},
		{input: "", expected: "XX"},
		{input: "N", expected: "XX"},
		{input: "Nebraska", expected: "XX"},
		{input: "N.Y.", expected: "XX"},
		{input: "12", expected: "XX"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRegion(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "+1 (555) 123-4567", expected: "5551234567"},
		{input: "555-1234", expected: "5551234"},
		{input: "", expected: ""},
		{input: "0044 20 7946 0018", expected: "2079460018"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestSynthesizeDOB_Range(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "19790101", synthesizeDOB(now, func(int64) int64 { return 0 }))
	assert.Equal(t, "20081231", synthesizeDOB(now, func(n int64) int64 { return n - 1 }))

	for i := 0; i < 200; i++ {
		dob := SynthesizeDOB(now)
		assert.Len(t, dob, 8)
		assert.GreaterOrEqual(t, dob, "19790101")
		assert.LessOrEqual(t, dob, "20081231")
	}
}

func TestFormatCustomerDOB(t *testing.T) {
	assert.Equal(t, "19800506", formatCustomerDOB("1980-05-06 00:00:00"))
	assert.Equal(t, "19800506", formatCustomerDOB("1980-05-06"))
	assert.Equal(t, "", formatCustomerDOB(""))
}
