package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"runtime.link/api"
	"runtime.link/api/cmdl"
	"runtime.link/api/unix"

	"turntable/internal/pkg/errors"
	"turntable/internal/scene"
)

// DefaultFPS maps animation frames to the --animation-time seconds f3d takes.
const DefaultFPS = 24

// f3dCommand is the slice of the f3d command line used for offscreen frames.
type f3dCommand struct {
	api.Specification

	RenderToFile func(context.Context, unix.Path, F3DOptions, unix.Path) error `cmdl:"--output=%s %s %s"`
}

// F3DOptions are the per-frame camera and output flags. Empty fields are
// left off the command line.
type F3DOptions struct {
	NoBackground     bool   `cmdl:"--no-background"`
	Resolution       string `cmdl:"--resolution=%s"`
	CameraPosition   string `cmdl:"--camera-position=%s"`
	CameraFocalPoint string `cmdl:"--camera-focal-point=%s"`
	CameraViewUp     string `cmdl:"--camera-view-up=%s"`
	AnimationTime    string `cmdl:"--animation-time=%s"`
}

// F3D renders frames locally with the f3d viewer in offscreen mode.
type F3D struct {
	bin  string
	root string
	fps  float64

	run func(ctx context.Context, output unix.Path, opts F3DOptions, mesh unix.Path) error
}

// NewF3D returns a backend that resolves relative mesh references against
// root. The executable is linked on first render.
func NewF3D(bin, root string) *F3D {
	if bin == "" {
		bin = "f3d"
	}
	cmd := sync.OnceValue(func() f3dCommand {
		return linkCommand[f3dCommand](cmdl.API, bin)
	})
	return &F3D{
		bin:  bin,
		root: root,
		fps:  DefaultFPS,
		run: func(ctx context.Context, output unix.Path, opts F3DOptions, mesh unix.Path) error {
			return cmd().RenderToFile(ctx, output, opts, mesh)
		},
	}
}

// linkCommand imports spec T for the program name over a unix command linker.
func linkCommand[T any, H ~string, C any](l api.Linker[H, C], name string) T {
	var conn C
	return api.Import[T](l, H(name), conn)
}

func (f *F3D) Render(ctx context.Context, req scene.FrameRequest) error {
	if strings.TrimSpace(req.Object.Mesh) == "" {
		return errors.ValidationField("mesh", "object "+req.Object.Name+" has no mesh to render")
	}
	if err := os.MkdirAll(filepath.Dir(req.File), 0o755); err != nil {
		return errors.RenderIO(err, "f3d.mkdir", filepath.Dir(req.File))
	}

	mesh := f.meshPath(req.Object.Mesh)
	if err := f.run(ctx, unix.Path(req.File), f.Options(req), unix.Path(mesh)); err != nil {
		return errors.RenderIO(err, "f3d.render", req.File).
			WithField("bin", f.bin).
			WithField("mesh", mesh)
	}
	return nil
}

// Options builds the f3d flags for req.
func (f *F3D) Options(req scene.FrameRequest) F3DOptions {
	opts := F3DOptions{
		NoBackground:     true,
		Resolution:       fmt.Sprintf("%d,%d", req.Width, req.Height),
		CameraPosition:   vec(req.Pose.Position),
		CameraFocalPoint: vec(scene.FocalPointFor(req.Pose, req.Object)),
		CameraViewUp:     vec(scene.ViewUp(req.Pose)),
	}
	if req.Object.FrameEnd > 0 && f.fps > 0 {
		opts.AnimationTime = fmt.Sprintf("%g", float64(req.Frame)/f.fps)
	}
	return opts
}

func (f *F3D) meshPath(mesh string) string {
	if filepath.IsAbs(mesh) || f.root == "" {
		return mesh
	}
	return filepath.Join(f.root, filepath.FromSlash(mesh))
}

func vec(v mgl64.Vec3) string {
	return fmt.Sprintf("%g,%g,%g", v.X(), v.Y(), v.Z())
}
