package fetch

import "testing"

func TestIsURL(t *testing.T) {
	tests := []struct {
		loc  string
		want bool
	}{
		{"https://en.wikipedia.org/api/rest_v1/page/html/Foo", true},
		{"http://localhost:8000/page.html", true},
		{"file:///tmp/page.html", false},
		{"page.html", false},
		{"/abs/page.html", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.loc); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.loc, got, tt.want)
		}
	}
}

func TestWithExt(t *testing.T) {
	tests := []struct {
		loc, ext, want string
	}{
		{"dir/page.html", ".wt", "dir/page.wt"},
		{"page", ".out.html", "page.out.html"},
		{"http://host/a/page.html?rev=3", ".wt", "http://host/a/page.wt?rev=3"},
		{"file:///tmp/page.html", ".wt", "file:///tmp/page.wt"},
	}
	for _, tt := range tests {
		if got := WithExt(tt.loc, tt.ext); got != tt.want {
			t.Errorf("WithExt(%q, %q) = %q, want %q", tt.loc, tt.ext, got, tt.want)
		}
	}
}

func TestBasename(t *testing.T) {
	tests := []struct {
		loc, want string
	}{
		{"dir/page.html", "page.html"},
		{"http://host/a/page.html?rev=3", "page.html"},
		{"http://host/", "host"},
		{"file:///tmp/page.html", "page.html"},
	}
	for _, tt := range tests {
		if got := Basename(tt.loc); got != tt.want {
			t.Errorf("Basename(%q) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}
