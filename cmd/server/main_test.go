package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCFOThreshold(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want decimal.Decimal
	}{
		{"default value", "1000000", decimal.NewFromInt(1_000_000)},
		{"custom value", "250000.50", decimal.RequireFromString("250000.50")},
		{"zero escalates everything", "0", decimal.Zero},
		{"malformed falls back", "not-a-number", decimal.NewFromInt(1_000_000)},
		{"empty falls back", "", decimal.NewFromInt(1_000_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfoThreshold(tt.raw)
			if !got.Equal(tt.want) {
				t.Fatalf("cfoThreshold(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}
