package tools

import "testing"

func TestNormalizeColor(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"red", "#FF0000"},
		{"Blue", "#0000FF"},
		{"  GREEN  ", "#00FF00"},
		{"gray", "#808080"},
		{"grey", "#808080"},
		{"magenta", "#FF00FF"},
		{"#abc123", "#abc123"},
		{"chartreuse", "chartreuse"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeColor(tc.in); got != tc.want {
			t.Errorf("NormalizeColor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
