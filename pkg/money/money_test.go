package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMinor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1015, "10.15"},
		{-120, "-1.20"},
		{900_000_000_000_123, "9000000000001.23"},
	}

	for _, tt := range tests {
		got := FormatMinor(tt.in)
		if got != tt.want {
			t.Fatalf("FormatMinor(%d): want %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestParseMinor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr error
	}{
		{name: "two_decimals", in: "10.15", want: 1015},
		{name: "one_decimal", in: "1.5", want: 150},
		{name: "integer", in: " 7 ", want: 700},
		{name: "negative", in: "-3.25", want: -325},
		{name: "trailing_zeros_ok", in: "1.2300", want: 123},
		{name: "too_precise", in: "1.234", wantErr: ErrPrecision},
		{name: "empty", in: "  ", wantErr: ErrEmpty},
		{name: "too_large", in: "999999999999999999999", wantErr: ErrRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseMinor(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %d, got %d", tt.want, got)
			}
		})
	}

	_, err := ParseMinor("abc")
	if err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestWeightedAverage(t *testing.T) {
	t.Parallel()

	// 10 units at 100 + 10 units at 200 -> 150
	got := WeightedAverage(10, decimal.NewFromInt(100), 10, 200)
	if !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("want 150, got %s", got)
	}

	// first purchase takes the purchase price
	got = WeightedAverage(0, decimal.Zero, 3, 2500)
	if !got.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("want 2500, got %s", got)
	}

	// 1 at 100 + 2 at 101 -> 100.6667
	got = WeightedAverage(1, decimal.NewFromInt(100), 2, 101)
	if got.String() != "100.6667" {
		t.Fatalf("want 100.6667, got %s", got)
	}
}
