package storage

import (
	"context"
	"testing"

	"turntable/internal/pkg/errors"
)

func TestNewProviderLocalFS(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "")
	t.Setenv("STORAGE_LOCAL_ROOT", t.TempDir())

	sp, err := NewProvider(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Provider() != ProviderLocalFS {
		t.Errorf("expected localfs, got %s", sp.Provider())
	}
}

func TestNewProviderErrors(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"localfs without root", map[string]string{"STORAGE_PROVIDER": "localfs", "STORAGE_LOCAL_ROOT": ""}, "STORAGE_LOCAL_ROOT"},
		{"unknown provider", map[string]string{"STORAGE_PROVIDER": "s3"}, "STORAGE_PROVIDER"},
		{"gdrive without token", map[string]string{
			"STORAGE_PROVIDER":     "gdrive",
			"GDRIVE_CLIENT_ID":     "id",
			"GDRIVE_CLIENT_SECRET": "secret",
			"GDRIVE_REFRESH_TOKEN": "",
		}, "GDRIVE_REFRESH_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewProvider(context.Background())
			if !errors.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if got := errors.GetFields(err)["field"]; got != tt.field {
				t.Errorf("expected field %s, got %v", tt.field, got)
			}
		})
	}
}
