package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"turntable/internal/httpkit"
	"turntable/internal/pkg/errors"
	"turntable/internal/ports"
	"turntable/internal/worker/util"
)

const (
	maxMeshUpload = 512 << 20
	signedURLTTL  = 30 * time.Minute
)

// meshExts are the mesh formats the renderers can load.
var meshExts = map[string]string{
	".glb":  "model/gltf-binary",
	".gltf": "model/gltf+json",
	".obj":  "model/obj",
	".stl":  "model/stl",
	".ply":  "application/x-ply",
	".fbx":  "application/octet-stream",
	".3ds":  "application/x-3ds",
	".vtp":  "application/xml",
	".usd":  "model/vnd.usd",
	".usdz": "model/vnd.usdz+zip",
}

type assetItem struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Provider  string    `json:"provider"`
	ObjectKey string    `json:"object_key"`
	Mime      string    `json:"mime"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// PostAsset uploads a mesh. Frame assets are only created by the worker.
func (h *Handler) PostAsset(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxMeshUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return errors.Validation("invalid multipart form")
	}

	kind := strings.TrimSpace(r.FormValue("kind"))
	if kind == "" {
		kind = assetKindMesh
	}
	if kind != assetKindMesh {
		return errors.ValidationField("kind", "only mesh assets can be uploaded")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return errors.ValidationField("file", "file is required")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	fallbackType, ok := meshExts[ext]
	if !ok {
		return errors.ValidationField("file", fmt.Sprintf("unsupported mesh format %q", ext))
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if t := mime.TypeByExtension(ext); t != "" {
			contentType = t
		} else {
			contentType = fallbackType
		}
	}

	assetID := util.NewID("ast")
	objectKey := fmt.Sprintf("assets/%s/original%s", assetID, ext)

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Reader:      file,
		Size:        header.Size,
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "assets.put", "storage put failed")
	}

	a := assetItem{
		ID:        assetID,
		Kind:      kind,
		Provider:  h.sp.Provider(),
		ObjectKey: out.ObjectKey,
		Mime:      contentType,
		SizeBytes: out.Size,
		CreatedAt: time.Now().UTC(),
	}
	_, err = h.pool.Exec(ctx,
		`INSERT INTO assets (id, kind, provider, object_key, mime, size_bytes, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.Kind, a.Provider, a.ObjectKey, a.Mime, a.SizeBytes, a.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "assets.insert", "db insert asset failed")
	}

	h.log.FromContext(ctx).Info("mesh uploaded", "asset_id", a.ID, "size_bytes", a.SizeBytes)
	httpkit.WriteJSON(w, http.StatusCreated, map[string]any{"asset": a})
	return nil
}

func (h *Handler) loadAsset(r *http.Request, assetID string) (*assetItem, error) {
	var a assetItem
	err := h.pool.QueryRow(r.Context(),
		`SELECT id, kind, provider, object_key, mime, size_bytes, created_at
		 FROM assets WHERE id=$1`, assetID,
	).Scan(&a.ID, &a.Kind, &a.Provider, &a.ObjectKey, &a.Mime, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("asset", assetID)
		}
		return nil, errors.Wrap(err, "assets.get", "db query failed")
	}
	return &a, nil
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) error {
	a, err := h.loadAsset(r, chi.URLParam(r, "assetId"))
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"asset": a})
	return nil
}

// GetAssetURL returns a provider URL when the storage backend can sign one,
// and the API content route otherwise.
func (h *Handler) GetAssetURL(w http.ResponseWriter, r *http.Request) error {
	a, err := h.loadAsset(r, chi.URLParam(r, "assetId"))
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/assets/%s/content", h.publicURL, a.ID)
	expiresAt := time.Now().UTC().Add(signedURLTTL)

	signed, err := h.sp.GetSignedURL(r.Context(), a.ObjectKey, signedURLTTL)
	if err == nil && signed.URL != "" {
		url, expiresAt = signed.URL, signed.ExpiresAt
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"asset_id":   a.ID,
		"url":        url,
		"expires_at": expiresAt,
	})
	return nil
}

func (h *Handler) StreamAsset(w http.ResponseWriter, r *http.Request) error {
	a, err := h.loadAsset(r, chi.URLParam(r, "assetId"))
	if err != nil {
		return err
	}

	rc, ct, _, err := h.sp.GetObject(r.Context(), a.ObjectKey)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeNotFound, "assets.stream", "asset file missing").
			WithField("object_key", a.ObjectKey)
	}
	defer rc.Close()

	if ct == "" {
		ct = a.Mime
	}
	w.Header().Set("Content-Type", ct)
	if a.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(r.Context()).Warn("asset stream interrupted", "asset_id", a.ID, "error", err.Error())
	}
	return nil
}

// DeleteAsset removes an asset no job frame or live object refers to.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	a, err := h.loadAsset(r, chi.URLParam(r, "assetId"))
	if err != nil {
		return err
	}

	var refs int
	if err := h.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(1) FROM job_frames WHERE asset_id=$1)
		      + (SELECT COUNT(1) FROM scene_objects WHERE mesh_asset_id=$1 AND deleted_at IS NULL)`,
		a.ID,
	).Scan(&refs); err != nil {
		return errors.Wrap(err, "assets.refs", "db query failed")
	}
	if refs > 0 {
		return errors.Conflict("asset is referenced by job frames or scene objects").
			WithField("asset_id", a.ID)
	}

	if _, err := h.pool.Exec(ctx, `DELETE FROM assets WHERE id=$1`, a.ID); err != nil {
		// Soft-deleted objects still hold their mesh reference.
		if httpkit.IsForeignKeyViolation(err) {
			return errors.Conflict("asset is referenced by a deleted scene object").
				WithField("asset_id", a.ID)
		}
		return errors.Wrap(err, "assets.delete", "db delete failed")
	}

	if err := h.sp.DeleteObject(ctx, a.ObjectKey); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.log.FromContext(ctx).Warn("asset row deleted but storage object kept",
			"asset_id", a.ID,
			"object_key", a.ObjectKey,
			"error", err.Error(),
		)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
