package common

import "testing"

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"first set", []string{"a", "b"}, "a"},
		{"skips zero", []string{"", "", "c"}, "c"},
		{"all zero", []string{"", ""}, ""},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Coalesce(tt.values...); got != tt.want {
				t.Errorf("Coalesce(%q) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}
