package orbit

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is the mutable camera the planner drives.
type Camera interface {
	Pose() Pose
	SetPose(Pose)
}

// Host is the 3D environment a job runs against. The planner assumes
// exclusive use of the camera and frame cursor for the duration of Run.
type Host interface {
	// ResolveObject returns the reference location of the named mesh, or a
	// NOT_FOUND error.
	ResolveObject(ctx context.Context, name string) (mgl64.Vec3, error)
	Camera() Camera

	AnimationRange() (start, end int)
	CurrentFrame() int
	SetCurrentFrame(frame int)

	ConfigureOutput(width, height int, format string) error
	// RenderFrame renders the current scene state and writes the image at
	// path. It blocks until the file is written.
	RenderFrame(ctx context.Context, path string) error
}
