package redis

import "testing"

func TestListPattern(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"rag:tenant-a:", "rag:tenant-a:*"},
		{"rag:a%2Ab:", "rag:a%2Ab:*"},
		{`a*b`, `a\*b*`},
		{`a?b`, `a\?b*`},
		{`a[b]`, `a\[b\]*`},
		{`a\b`, `a\\b*`},
	}
	for _, tt := range tests {
		if got := listPattern(tt.prefix); got != tt.want {
			t.Errorf("listPattern(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}
