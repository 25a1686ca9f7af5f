package util

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnvCSV(t *testing.T) {
	def := []string{"http://localhost:5173"}

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"unset", "", def},
		{"blanks only", " , ,", def},
		{"trimmed", " http://a.test , http://b.test,", []string{"http://a.test", "http://b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CORS_ALLOWED_ORIGINS", tt.raw)
			if diff := cmp.Diff(tt.want, EnvCSV("CORS_ALLOWED_ORIGINS", def)); diff != "" {
				t.Errorf("EnvCSV mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "  ")
	if got := Env("HTTP_PORT", "8080"); got != "8080" {
		t.Errorf("expected default for blank value, got %q", got)
	}
	t.Setenv("HTTP_PORT", "9090")
	if got := Env("HTTP_PORT", "8080"); got != "9090" {
		t.Errorf("expected 9090, got %q", got)
	}
}
