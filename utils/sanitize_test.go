package utils

import "testing"

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<script>alert(1)</script>ok", "ok"},
		{"<b>bold</b> claim", "bold claim"},
		{"", ""},
	}
	for _, tt := range cases {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Fatalf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
