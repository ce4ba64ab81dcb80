package courses_test

import (
	"testing"

	"github.com/meridian-lms/meridian-lms/internal/courses"
	_ "github.com/meridian-lms/meridian-lms/testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Go for Backend Engineers", "go-for-backend-engineers"},
		{"Álgebra Linéal", "algebra-lineal"},
		{"  Spaces   everywhere  ", "spaces-everywhere"},
		{"C++ & Rust: systems!", "c-rust-systems"},
		{"UPPER case 101", "upper-case-101"},
		{"---", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := courses.Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
