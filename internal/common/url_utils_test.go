package common

import "testing"

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"root base", "https://bss.example", "/bss/info", "https://bss.example/bss/info"},
		{"base with path", "https://bss.example/bss/", "/subjects", "https://bss.example/bss/subjects"},
		{"no slashes", "https://bss.example/bss", "subjects", "https://bss.example/bss/subjects"},
		{"query kept", "http://localhost:8080", "/search?draw=1&length=10", "http://localhost:8080/search?draw=1&length=10"},
		{"absolute path wins", "https://bss.example", "https://other.example/x", "https://other.example/x"},
		{"empty path", "https://bss.example/bss", "", "https://bss.example/bss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.base, tt.path)
			if err != nil {
				t.Fatalf("ResolveURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}

	if _, err := ResolveURL("bss.example", "/x"); err == nil {
		t.Error("expected error for relative base")
	}
}
