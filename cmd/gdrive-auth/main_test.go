package main

import (
	"net/http/httptest"
	"testing"
)

func TestCallbackCode(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{"ok", "?state=s1&code=abc", "abc", false},
		{"wrong state", "?state=other&code=abc", "", true},
		{"denied", "?state=s1&error=access_denied", "", true},
		{"no code", "?state=s1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callbackCode(httptest.NewRequest("GET", "/callback"+tt.query, nil), "s1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRandomStateIsUnique(t *testing.T) {
	if a, b := randomState(), randomState(); a == b || len(a) != 24 {
		t.Errorf("unexpected states %q %q", a, b)
	}
}
