package browser

import "testing"

func TestOpen_RejectsNonHTTPSchemes(t *testing.T) {
	tests := []string{
		"file:///etc/passwd",
		"javascript:alert(1)",
		"ftp://example.com",
		"not a url at all%%%",
	}

	for _, u := range tests {
		if err := Open(u); err == nil {
			t.Errorf("Open(%q) should refuse non-http(s) URLs", u)
		}
	}
}
