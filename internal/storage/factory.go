package storage

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"turntable/internal/adapters/storage/gdrive"
	"turntable/internal/adapters/storage/localfs"
	"turntable/internal/pkg/errors"
	"turntable/internal/worker/util"
)

// Provider names accepted in STORAGE_PROVIDER.
const (
	ProviderLocalFS = "localfs"
	ProviderGDrive  = "gdrive"
)

// NewProvider builds the provider named by STORAGE_PROVIDER (default localfs).
func NewProvider(ctx context.Context) (Provider, error) {
	switch provider := util.Env("STORAGE_PROVIDER", ProviderLocalFS); provider {
	case ProviderLocalFS:
		root := util.Env("STORAGE_LOCAL_ROOT", "")
		if root == "" {
			return nil, errors.Configuration("STORAGE_LOCAL_ROOT", "STORAGE_LOCAL_ROOT is required for localfs")
		}
		return localfs.New(root), nil

	case ProviderGDrive:
		return newGDriveProvider(ctx)

	default:
		return nil, errors.Configuration("STORAGE_PROVIDER", "unknown storage provider %q", provider)
	}
}

func newGDriveProvider(ctx context.Context) (Provider, error) {
	conf := &oauth2.Config{
		ClientID:     util.Env("GDRIVE_CLIENT_ID", ""),
		ClientSecret: util.Env("GDRIVE_CLIENT_SECRET", ""),
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	refreshToken := util.Env("GDRIVE_REFRESH_TOKEN", "")

	for field, v := range map[string]string{
		"GDRIVE_CLIENT_ID":     conf.ClientID,
		"GDRIVE_CLIENT_SECRET": conf.ClientSecret,
		"GDRIVE_REFRESH_TOKEN": refreshToken,
	} {
		if v == "" {
			return nil, errors.Configuration(field, "%s is required for gdrive", field)
		}
	}

	// The token source outlives ctx, which only bounds construction.
	httpClient := conf.Client(context.WithoutCancel(ctx), &oauth2.Token{RefreshToken: refreshToken})

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "storage.gdrive", "failed to create drive service")
	}

	return gdrive.NewClient(srv, util.Env("GDRIVE_FOLDER_ID", "")), nil
}
