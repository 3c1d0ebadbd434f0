package domain

import (
	"errors"
	"math"
	"testing"
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d uint64
		want    uint64
		wantErr bool
	}{
		{"unit price", 1000, Scale, Scale, 1000, false},
		{"truncates", 3, 1, 2, 1, false},
		{"fractional price", 15_000_000, 1_200_000, Scale, 1_800_000, false},
		{"zero", 0, Scale, Scale, 0, false},
		{"128-bit intermediate", math.MaxUint64, Scale, Scale, math.MaxUint64, false},
		{"quotient overflow", math.MaxUint64, math.MaxUint64, 2, 0, true},
		{"zero divisor", 1, 1, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.d)
			if tt.wantErr {
				if !errors.Is(err, ErrOracle) {
					t.Fatalf("MulDiv() error = %v, want ErrOracle", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("MulDiv(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.d, got, tt.want)
			}
		})
	}
}

func TestAbsDiff(t *testing.T) {
	if got := AbsDiff(10000, 5000); got != 5000 {
		t.Errorf("AbsDiff(10000, 5000) = %d, want 5000", got)
	}
	if got := AbsDiff(0, 5000); got != 5000 {
		t.Errorf("AbsDiff(0, 5000) = %d, want 5000", got)
	}
	if got := AbsDiff(7, 7); got != 0 {
		t.Errorf("AbsDiff(7, 7) = %d, want 0", got)
	}
}

func TestFormatStroops(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0"},
		{1, "0.0000001"},
		{10_000_000, "1"},
		{1_200_000, "0.12"},
		{12_345_678_901, "1234.5678901"},
	}

	for _, tt := range tests {
		if got := FormatStroops(tt.in); got != tt.want {
			t.Errorf("FormatStroops(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStroops(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"integer", "100", 1_000_000_000, false},
		{"horizon balance", "500.5000000", 5_005_000_000, false},
		{"smallest unit", "0.0000001", 1, false},
		{"truncates extra digits", "0.00000019", 1, false},
		{"zero", "0", 0, false},
		{"negative", "-1", 0, true},
		{"invalid", "abc", 0, true},
		{"empty", "", 0, true},
		{"too large", "99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStroops(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStroops(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStroops(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBps(t *testing.T) {
	if got := FormatBps(1234); got != "12.34%" {
		t.Errorf("FormatBps(1234) = %q, want 12.34%%", got)
	}
	if got := FormatBps(10000); got != "100.00%" {
		t.Errorf("FormatBps(10000) = %q, want 100.00%%", got)
	}
}
