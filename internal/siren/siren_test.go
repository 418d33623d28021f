package siren

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		siren string
		valid bool
	}{
		{"valid check digit", "123456782", true},
		{"wrong check digit", "123456789", false},
		{"too short", "1234567", false},
		{"too long", "1234567820", false},
		{"empty", "", false},
		{"non digits", "12345678a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid(tt.siren))
		})
	}
}
