// Package scene is an in-memory 3D environment that satisfies orbit.Host.
//
// A Scene owns named mesh objects, one camera, an animation range with a
// frame cursor and the output settings. Rendering is delegated to a Backend
// that receives a FrameRequest describing the full camera and frame state.
package scene

import (
	"context"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
)

const (
	DefaultFrameStart = 1
	DefaultFrameEnd   = 250
)

var extensions = map[string]string{
	orbit.FormatPNG: ".png",
}

// Object is a named mesh placed in the scene.
type Object struct {
	Name     string     `json:"name" yaml:"name"`
	Location mgl64.Vec3 `json:"location" yaml:"location"`
	// Mesh is the asset reference handed to the renderer (a file path or a
	// storage object key).
	Mesh string `json:"mesh,omitempty" yaml:"mesh,omitempty"`
	// FrameStart and FrameEnd bound the object's animation, zero when static.
	FrameStart int `json:"frame_start,omitempty" yaml:"frame_start,omitempty"`
	FrameEnd   int `json:"frame_end,omitempty" yaml:"frame_end,omitempty"`
}

// Camera holds the scene camera pose.
type Camera struct {
	pose orbit.Pose
}

func (c *Camera) Pose() orbit.Pose     { return c.pose }
func (c *Camera) SetPose(p orbit.Pose) { c.pose = p }

// FrameRequest is everything a Backend needs to render one image.
type FrameRequest struct {
	// Path is the extension-less output path chosen by the planner.
	Path string
	// File is Path plus the extension of Format.
	File   string
	Object Object
	Pose   orbit.Pose
	Frame  int
	Width  int
	Height int
	Format string
}

// Backend renders one frame and blocks until the image is written.
type Backend interface {
	Render(ctx context.Context, req FrameRequest) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req FrameRequest) error

func (f BackendFunc) Render(ctx context.Context, req FrameRequest) error { return f(ctx, req) }

// Scene is not safe for concurrent use.
type Scene struct {
	objects map[string]Object
	order   []string
	active  string

	camera Camera

	frameStart int
	frameEnd   int
	current    int

	width  int
	height int
	format string

	backend Backend
}

// New builds a scene from a validated description.
func New(desc Description, backend Backend) (*Scene, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	start, end := desc.FrameRange()
	s := &Scene{
		objects:    make(map[string]Object, len(desc.Objects)),
		frameStart: start,
		frameEnd:   end,
		current:    start,
		format:     orbit.FormatPNG,
		backend:    backend,
	}
	for _, o := range desc.Objects {
		s.objects[o.Name] = o
		s.order = append(s.order, o.Name)
	}
	if desc.Camera != nil {
		s.camera.pose = *desc.Camera
	}
	return s, nil
}

// ForObject builds a single-object scene using the object's own animation
// range, falling back to the defaults for static meshes.
func ForObject(obj Object, backend Backend) (*Scene, error) {
	desc := Description{
		Objects:    []Object{obj},
		FrameStart: obj.FrameStart,
		FrameEnd:   obj.FrameEnd,
	}
	return New(desc, backend)
}

// Objects returns the scene objects in declaration order.
func (s *Scene) Objects() []Object {
	out := make([]Object, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.objects[name])
	}
	return out
}

// Object returns the named object.
func (s *Scene) Object(name string) (Object, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Active returns the object most recently resolved.
func (s *Scene) Active() (Object, bool) {
	return s.Object(s.active)
}

// ResolveObject selects the named object as active and returns its location.
func (s *Scene) ResolveObject(_ context.Context, name string) (mgl64.Vec3, error) {
	o, ok := s.objects[name]
	if !ok {
		return mgl64.Vec3{}, errors.NotFound("object", name)
	}
	s.active = name
	return o.Location, nil
}

func (s *Scene) Camera() orbit.Camera { return &s.camera }

func (s *Scene) AnimationRange() (int, int) { return s.frameStart, s.frameEnd }

func (s *Scene) CurrentFrame() int { return s.current }

func (s *Scene) SetCurrentFrame(frame int) { s.current = frame }

// ConfigureOutput sets the image size and file format for later renders.
func (s *Scene) ConfigureOutput(width, height int, format string) error {
	format = strings.ToUpper(strings.TrimSpace(format))
	if _, ok := extensions[format]; !ok {
		return errors.ValidationField("format", "unsupported output format "+format)
	}
	if width <= 0 || height <= 0 {
		return errors.Validation("output size must be positive").
			WithFields(map[string]any{"width": width, "height": height})
	}
	s.width, s.height, s.format = width, height, format
	return nil
}

// Output returns the configured image size and format.
func (s *Scene) Output() (width, height int, format string) {
	return s.width, s.height, s.format
}

// RenderFrame hands the current scene state to the backend.
func (s *Scene) RenderFrame(ctx context.Context, path string) error {
	if s.backend == nil {
		return errors.Internal("scene has no render backend")
	}
	obj, ok := s.Active()
	if !ok {
		return errors.New(errors.CodeInternal, "render requested before an object was resolved")
	}

	return s.backend.Render(ctx, FrameRequest{
		Path:   path,
		File:   path + extensions[s.format],
		Object: obj,
		Pose:   s.camera.pose,
		Frame:  s.current,
		Width:  s.width,
		Height: s.height,
		Format: s.format,
	})
}

var _ orbit.Host = (*Scene)(nil)
