package capture

import "testing"

func TestParseWindowBounds(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want windowBounds
		ok   bool
	}{
		{"plain list", "{0, 25, 1280, 800}", windowBounds{0, 25, 1280, 800}, true},
		{"no braces", "100, 50, 900, 700", windowBounds{100, 50, 900, 700}, true},
		{"negative origin", "{-100, 25, 400, 800}", windowBounds{-100, 25, 400, 800}, true},
		{"inverted horizontal", "{500, 25, 100, 800}", windowBounds{}, false},
		{"inverted vertical", "{0, 800, 1280, 25}", windowBounds{}, false},
		{"zero area", "{10, 10, 10, 10}", windowBounds{}, false},
		{"too few fields", "{0, 25, 1280}", windowBounds{}, false},
		{"non-numeric", "{a, b, c, d}", windowBounds{}, false},
		{"empty", "", windowBounds{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseWindowBounds(tt.in)
			if ok != tt.ok {
				t.Fatalf("parseWindowBounds(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("parseWindowBounds(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
