package database

import "testing"

func TestSplitURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantOrigin string
		wantPath   string
	}{
		{"https with path", "https://cdn.example.com/img/42.jpg", "https://cdn.example.com", "/img/42.jpg"},
		{"port and query", "http://localhost:8080/a.png?size=small", "http://localhost:8080", "/a.png?size=small"},
		{"host only", "https://cdn.example.com", "https://cdn.example.com", ""},
		{"trailing slash", "https://cdn.example.com/", "https://cdn.example.com", "/"},
		{"scheme relative", "//cdn.example.com/x.gif", "//cdn.example.com", "/x.gif"},
		{"no marker", "cdn.example.com/x.gif", "cdn.example.com/x.gif", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, path := SplitURL(tt.url)
			if origin != tt.wantOrigin || path != tt.wantPath {
				t.Fatalf("SplitURL(%q) = (%q, %q), want (%q, %q)", tt.url, origin, path, tt.wantOrigin, tt.wantPath)
			}
			if origin+path != tt.url {
				t.Fatalf("SplitURL(%q) does not reconstruct input: %q", tt.url, origin+path)
			}
		})
	}
}
