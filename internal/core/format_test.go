package core

import "testing"

func TestFormatSI(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{0, "0.0"},
		{45, "45"},
		{300, "300"},
		{1.26, "1.3"},
		{0.5, "500m"},
		{15500, "16k"},
		{-2500, "-2.5k"},
		{1234567, "1.2M"},
		{999.6, "1.0k"},
	}
	for _, tc := range cases {
		if got := FormatSI(tc.in); got != tc.out {
			t.Errorf("FormatSI(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
