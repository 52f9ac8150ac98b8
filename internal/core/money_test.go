package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 12345})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"123.45"` {
		t.Fatalf("unexpected encoding %s", b)
	}

	for _, in := range []string{`12.5`, `"12.50"`, `"12,50"`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if m.Cents != 1250 {
			t.Fatalf("%s: expected 1250 cents, got %d", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`-3`), &m); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	got := MoneyFromDecimal(decimal.RequireFromString("10.005"))
	if got.Cents != 1001 {
		t.Fatalf("expected 1001, got %d", got.Cents)
	}
	if s := (Money{Cents: 7}).String(); s != "0.07" {
		t.Fatalf("expected 0.07, got %s", s)
	}
}

func TestPercentString(t *testing.T) {
	p := NewPercent(decimal.RequireFromString("-33.335"))
	if p.String() != "-33.34" {
		t.Fatalf("expected -33.34, got %s", p.String())
	}
	b, _ := json.Marshal(NewPercent(decimal.NewFromInt(100)))
	if string(b) != `"100.00"` {
		t.Fatalf("unexpected encoding %s", b)
	}
}
