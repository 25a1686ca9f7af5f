package models

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// SceneObject is a mesh registered for orbit rendering.
type SceneObject struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location mgl64.Vec3 `json:"location"`
	// MeshAssetID points at the uploaded mesh in assets, empty when the
	// renderer already knows the mesh by name.
	MeshAssetID string     `json:"mesh_asset_id,omitempty"`
	FrameStart  int        `json:"frame_start"`
	FrameEnd    int        `json:"frame_end"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
