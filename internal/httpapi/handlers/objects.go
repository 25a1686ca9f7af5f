package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-gl/mathgl/mgl64"

	"turntable/internal/httpkit"
	"turntable/internal/models"
	"turntable/internal/pkg/errors"
	"turntable/internal/repositories"
	"turntable/internal/worker/util"
)

type CreateObjectRequest struct {
	Name        string     `json:"name"`
	Location    mgl64.Vec3 `json:"location"`
	MeshAssetID string     `json:"mesh_asset_id,omitempty"`
	FrameStart  int        `json:"frame_start,omitempty"`
	FrameEnd    int        `json:"frame_end,omitempty"`
}

func (req *CreateObjectRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.MeshAssetID = strings.TrimSpace(req.MeshAssetID)

	if req.Name == "" {
		return errors.ValidationField("name", "name is required")
	}
	if strings.ContainsAny(req.Name, `/\`) {
		return errors.ValidationField("name", "name must not contain path separators")
	}
	if req.FrameStart < 0 || req.FrameStart > req.FrameEnd {
		return errors.ValidationField("frame_end", "frame range must satisfy 0 <= frame_start <= frame_end")
	}
	return nil
}

func (h *Handler) PostObject(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req CreateObjectRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return errors.Validation("invalid json body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	if req.MeshAssetID != "" {
		var kind string
		err := h.pool.QueryRow(ctx, `SELECT kind FROM assets WHERE id=$1`, req.MeshAssetID).Scan(&kind)
		if err != nil {
			return errors.ValidationField("mesh_asset_id", "mesh asset not found")
		}
		if kind != assetKindMesh {
			return errors.ValidationField("mesh_asset_id", "asset is not a mesh")
		}
	}

	obj := &models.SceneObject{
		ID:          util.NewID("obj"),
		Name:        req.Name,
		Location:    req.Location,
		MeshAssetID: req.MeshAssetID,
		FrameStart:  req.FrameStart,
		FrameEnd:    req.FrameEnd,
	}
	if err := h.objects.Create(ctx, obj); err != nil {
		if errors.Is(err, repositories.ErrObjectExists) {
			return err
		}
		return errors.Wrap(err, "objects.create", "db insert failed")
	}

	h.log.FromContext(ctx).WithObject(obj.Name).Info("object registered", "id", obj.ID)
	httpkit.WriteJSON(w, http.StatusCreated, map[string]any{"object": obj})
	return nil
}

func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) error {
	objs, err := h.objects.List(r.Context())
	if err != nil {
		return errors.Wrap(err, "objects.list", "db query failed")
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"objects": objs})
	return nil
}

func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")

	obj, err := h.objects.GetByName(r.Context(), name)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NotFound("object", name)
		}
		return errors.Wrap(err, "objects.get", "db query failed")
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"object": obj})
	return nil
}

func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")

	if err := h.objects.Delete(r.Context(), name); err != nil {
		if errors.IsNotFound(err) {
			return errors.NotFound("object", name)
		}
		return errors.Wrap(err, "objects.delete", "db delete failed")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
