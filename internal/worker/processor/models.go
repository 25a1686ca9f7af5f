package processor

import "turntable/internal/scene"

// Job statuses stored in jobs.status.
const (
	StatusQueued   = "QUEUED"
	StatusRunning  = "RUNNING"
	StatusDone     = "DONE"
	StatusFailed   = "FAILED"
	StatusCanceled = "CANCELED"
)

// AssetKindFrame is the assets.kind of a rendered orbit frame.
const AssetKindFrame = "render_frame"

// AssetKindMesh is the assets.kind of an uploaded mesh.
const AssetKindMesh = "mesh"

type RegisterFrameRequest struct {
	JobID string
	// Index is the orbit iteration the frame was rendered in.
	Index int
	Frame scene.FrameRequest
}

type FrameResult struct {
	AssetID   string
	ObjectKey string
	Size      int64
}
