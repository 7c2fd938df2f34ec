package core

import "testing"

func TestParseAmountFilter(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"12,5", 12.5, true},
		{" 7 ", 7, true},
		{"-3", -3, true},
		{"0", 0, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"1,000.5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-Infinity", 0, false},
	}
	for _, tc := range cases {
		got := ParseAmountFilter(tc.in)
		if !tc.ok {
			if got != nil {
				t.Errorf("ParseAmountFilter(%q) = %v, want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Errorf("ParseAmountFilter(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
