package normalize

import "testing"

func TestIDModerate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"'123.0", "123", true},
		{" 123 ", "123", true},
		{`"2000011458658334"`, "2000011458658334", true},
		{"1049072.0", "1049072", true},
		{"AB 12\t34", "AB1234", true},
		{"45.67", "45.67", true}, // internal period preserved
		{"nan", "", false},
		{"NaN", "", false},
		{"", "", false},
		{"   ", "", false},
		{"''", "", false},
	}
	for _, tc := range cases {
		got, ok := ID(tc.in, Moderate)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ID(%q, Moderate) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIDAggressive(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"VEEN 5390", "VEEN5390", true},
		{"veen.5390", "veen5390", true},
		{"'1049072.0", "1049072", true},
		{"FBC-100.0", "FBC-100", true}, // ".0" tail compensation
		{"nan", "", false},
	}
	for _, tc := range cases {
		got, ok := ID(tc.in, Aggressive)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ID(%q, Aggressive) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIDIdempotent(t *testing.T) {
	inputs := []string{"'123.0", " 123 ", "VEEN 5390", "45.67", "FBC100", "2000011458658334"}
	for _, s := range []Strictness{Moderate, Aggressive} {
		for _, in := range inputs {
			once, ok := ID(in, s)
			if !ok {
				continue
			}
			twice, ok2 := ID(once, s)
			if !ok2 || twice != once {
				t.Errorf("ID not idempotent at strictness %d: %q -> %q -> %q", s, in, once, twice)
			}
		}
	}
}

func TestNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,234.56", 1234.56, true},
		{"  42 ", 42, true},
		{"-3.5", -3.5, true},
		{"XXXXXXXXXX", 0, false},
		{"#N/A", 0, false},
		{"N/A", 0, false},
		{"---", 0, false},
		{"", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"garbage", 0, false},
	}
	for _, tc := range cases {
		got, ok := Number(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("Number(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
