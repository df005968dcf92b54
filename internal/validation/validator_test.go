package validation

import "testing"

type shortenRequest struct {
	Destination string `json:"destination" validate:"required,http_url,max=40"`
	Title       string `json:"title" validate:"omitempty,notblank"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     shortenRequest
		wantErr string
	}{
		{"valid", shortenRequest{Destination: "https://example.com"}, ""},
		{"missing", shortenRequest{}, "destination is required"},
		{"ftp scheme", shortenRequest{Destination: "ftp://example.com"}, "destination must be an http or https URL"},
		{"no host", shortenRequest{Destination: "https://"}, "destination must be an http or https URL"},
		{"too long", shortenRequest{Destination: "https://example.com/aaaaaaaaaaaaaaaaaaaaaaaaa"}, "destination must be at most 40 characters"},
		{"blank title", shortenRequest{Destination: "https://example.com", Title: "   "}, "title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Message(err); got != tt.wantErr {
				t.Errorf("Message = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestIsHTTPURL(t *testing.T) {
	for raw, want := range map[string]bool{
		"http://a.com":    true,
		"https://a.com/x": true,
		" https://a.com ": true,
		"a.com":           false,
		"javascript:1":    false,
		"":                false,
	} {
		if got := IsHTTPURL(raw); got != want {
			t.Errorf("IsHTTPURL(%q) = %v, want %v", raw, got, want)
		}
	}
}
