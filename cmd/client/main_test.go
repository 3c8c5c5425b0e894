package main

import "testing"

func TestParsePort(t *testing.T) {
	tests := map[string]struct {
		in   string
		want int
	}{
		"empty":        {in: "", want: defaultPort},
		"valid":        {in: "9000", want: 9000},
		"not a number": {in: "ocho", want: defaultPort},
		"zero":         {in: "0", want: defaultPort},
		"too large":    {in: "70000", want: defaultPort},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := parsePort(tc.in); got != tc.want {
				t.Fatalf("parsePort(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}
