// Package v1 is the wire contract between the worker and an HTTP renderer.
//
// The worker POSTs one FrameSpec per orbit frame to {base}/render/frame and
// waits for a 2xx reply. The renderer writes the image to output.object_key
// inside the storage root it shares with the worker.
package v1

type Vec3 [3]float64

type Rotation struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

type Object struct {
	Name string `json:"name"`
	// Mesh is the mesh asset reference registered with the object.
	Mesh string `json:"mesh"`
}

type Camera struct {
	Position   Vec3     `json:"position"`
	Rotation   Rotation `json:"rotation"`
	FocalPoint Vec3     `json:"focal_point"`
	ViewUp     Vec3     `json:"view_up"`
}

type Output struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	ObjectKey string `json:"object_key"`
}

type FrameSpec struct {
	JobID string `json:"job_id,omitempty"`
	// Frame is the output file stem, the orbit index with optional padding.
	Frame          string `json:"frame"`
	AnimationFrame int    `json:"animation_frame"`
	Object         Object `json:"object"`
	Camera         Camera `json:"camera"`
	Output         Output `json:"output"`
}
