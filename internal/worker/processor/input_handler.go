package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"turntable/internal/ports"
)

type InputHandler struct {
	pool        *pgxpool.Pool
	sp          ports.StorageProvider
	storageRoot string
}

func NewInputHandler(pool *pgxpool.Pool, sp ports.StorageProvider, storageRoot string) *InputHandler {
	return &InputHandler{
		pool:        pool,
		sp:          sp,
		storageRoot: storageRoot,
	}
}

// MaterializeMesh makes the mesh asset readable under the storage root and
// returns its key relative to that root. Assets on localfs are already in
// place; remote assets are downloaded into the job's inputs directory.
func (ih *InputHandler) MaterializeMesh(ctx context.Context, jobID, objectName, assetID string) (string, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return "", nil
	}

	asset, err := ih.fetchAsset(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("mesh asset not found object=%s asset_id=%s: %w", objectName, assetID, err)
	}
	if asset.Provider == "localfs" && ih.sp.Provider() == "localfs" {
		return asset.ObjectKey, nil
	}

	rc, err := ih.downloadAsset(ctx, asset.ObjectKey, assetID)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	baseDir := InputsDir(ih.storageRoot, jobID)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create inputs directory: %w", err)
	}

	localPath, err := ih.saveToLocal(baseDir, objectName, asset.Mime, rc)
	if err != nil {
		return "", fmt.Errorf("failed to save mesh locally object=%s: %w", objectName, err)
	}
	return ObjectKey(ih.storageRoot, localPath)
}

type assetMetadata struct {
	ObjectKey string
	Mime      string
	Provider  string
}

func (ih *InputHandler) fetchAsset(ctx context.Context, assetID string) (*assetMetadata, error) {
	var a assetMetadata
	err := ih.pool.QueryRow(ctx,
		`SELECT object_key, mime, provider FROM assets WHERE id=$1`,
		assetID,
	).Scan(&a.ObjectKey, &a.Mime, &a.Provider)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (ih *InputHandler) downloadAsset(ctx context.Context, objectKey, assetID string) (io.ReadCloser, error) {
	rc, _, _, err := ih.sp.GetObject(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("download mesh failed asset_id=%s: %w", assetID, err)
	}
	return rc, nil
}

func (ih *InputHandler) saveToLocal(baseDir, name, mime string, rc io.Reader) (string, error) {
	localPath := filepath.Join(baseDir, SanitizeFilename(name)+ExtFromMime(mime))

	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return "", err
	}
	return localPath, nil
}
