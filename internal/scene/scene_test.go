package scene

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
	"turntable/internal/pkg/logger"
)

type recorder struct {
	reqs []FrameRequest
}

func (r *recorder) Render(_ context.Context, req FrameRequest) error {
	r.reqs = append(r.reqs, req)
	return nil
}

func suzanne() Object {
	return Object{Name: "Suzanne", Mesh: "meshes/suzanne.glb"}
}

func TestResolveObject(t *testing.T) {
	s, err := ForObject(suzanne(), &recorder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.ResolveObject(context.Background(), "Cube"); !errors.IsNotFound(err) {
		t.Errorf("expected not found for unknown object, got %v", err)
	}
	if _, ok := s.Active(); ok {
		t.Error("expected no active object after a failed lookup")
	}

	loc, err := s.ResolveObject(context.Background(), "Suzanne")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != (mgl64.Vec3{}) {
		t.Errorf("expected origin, got %v", loc)
	}
	if o, _ := s.Active(); o.Name != "Suzanne" {
		t.Errorf("expected Suzanne active, got %q", o.Name)
	}
}

func TestForObjectFrameRange(t *testing.T) {
	s, err := ForObject(suzanne(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start, end := s.AnimationRange(); start != DefaultFrameStart || end != DefaultFrameEnd {
		t.Errorf("expected default range, got %d..%d", start, end)
	}

	animated := suzanne()
	animated.FrameStart, animated.FrameEnd = 10, 40
	s, err = ForObject(animated, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start, end := s.AnimationRange(); start != 10 || end != 40 {
		t.Errorf("expected 10..40, got %d..%d", start, end)
	}
	if s.CurrentFrame() != 10 {
		t.Errorf("expected cursor at start, got %d", s.CurrentFrame())
	}
}

func TestConfigureOutput(t *testing.T) {
	s, _ := ForObject(suzanne(), nil)

	if err := s.ConfigureOutput(640, 480, "png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w, h, f := s.Output(); w != 640 || h != 480 || f != orbit.FormatPNG {
		t.Errorf("expected 640x480 PNG, got %dx%d %s", w, h, f)
	}

	if err := s.ConfigureOutput(640, 480, "EXR"); !errors.IsValidation(err) {
		t.Errorf("expected validation error for EXR, got %v", err)
	}
	if err := s.ConfigureOutput(0, 480, "PNG"); !errors.IsValidation(err) {
		t.Errorf("expected validation error for zero width, got %v", err)
	}
}

func TestRenderFrameWithoutObject(t *testing.T) {
	s, _ := ForObject(suzanne(), &recorder{})

	if err := s.RenderFrame(context.Background(), "out/0"); err == nil {
		t.Fatal("expected error before an object is resolved")
	}
}

func TestRunThroughScene(t *testing.T) {
	rec := &recorder{}
	obj := suzanne()
	obj.FrameStart, obj.FrameEnd = 1, 2
	s, err := ForObject(obj, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := orbit.DefaultConfig()
	cfg.ObjectName = "Suzanne"
	cfg.OutputPath = "out"
	cfg.Width, cfg.Height = 800, 600

	planner := orbit.New(orbit.Deps{Log: logger.Discard()})
	if _, err := planner.Run(context.Background(), s, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.reqs) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(rec.reqs))
	}

	var files []string
	var frames []int
	for _, req := range rec.reqs {
		files = append(files, req.File)
		frames = append(frames, req.Frame)
		if req.Width != 800 || req.Height != 600 || req.Format != orbit.FormatPNG {
			t.Errorf("unexpected output settings %dx%d %s", req.Width, req.Height, req.Format)
		}
		if req.Object.Mesh != "meshes/suzanne.glb" {
			t.Errorf("expected mesh reference to flow through, got %q", req.Object.Mesh)
		}
	}

	wantFiles := []string{
		filepath.Join("out", "0") + ".png",
		filepath.Join("out", "1") + ".png",
		filepath.Join("out", "2") + ".png",
		filepath.Join("out", "3") + ".png",
	}
	if diff := cmp.Diff(wantFiles, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 2, 3}, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestViewDirectionFacesTarget(t *testing.T) {
	for _, n := range []int{1, 4, 7, 36} {
		initial, err := orbit.InitialPose(mgl64.Vec3{}, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for i := 0; i < n; i++ {
			p := orbit.PoseAt(initial, i, n)
			want := p.Position.Mul(-1).Normalize()
			got := ViewDirection(p)
			if got.Sub(want).Len() > 1e-9 {
				t.Errorf("N=%d frame %d: expected direction %v, got %v", n, i, want, got)
			}
			if ViewUp(p).Dot(got) > 1e-9 {
				t.Errorf("N=%d frame %d: up vector not orthogonal to view", n, i)
			}
		}
	}
}

func TestFocalPointFor(t *testing.T) {
	initial, err := orbit.InitialPose(mgl64.Vec3{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fp := FocalPointFor(initial, suzanne())
	if fp.Len() > 1e-9 {
		t.Errorf("expected focal point at the target, got %v", fp)
	}

	fp = FocalPoint(initial, 1)
	if d := fp.Sub(initial.Position).Len(); math.Abs(d-1) > 1e-12 {
		t.Errorf("expected unit focus distance, got %v", d)
	}
}
