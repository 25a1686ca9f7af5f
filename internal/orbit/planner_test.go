package orbit

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"turntable/internal/pkg/errors"
	"turntable/internal/pkg/logger"
)

type fakeCamera struct {
	pose Pose
	sets int
}

func (c *fakeCamera) Pose() Pose     { return c.pose }
func (c *fakeCamera) SetPose(p Pose) { c.pose = p; c.sets++ }

type renderCall struct {
	Path  string
	Frame int
	Pose  Pose
}

type fakeHost struct {
	objects map[string]mgl64.Vec3
	camera  fakeCamera

	start, end, current int

	width, height int
	format        string

	renders  []renderCall
	failAt   int
	onRender func(i int)
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		objects: map[string]mgl64.Vec3{"Suzanne": {}},
		start:   1,
		end:     250,
		current: 42,
		failAt:  -1,
	}
}

func (h *fakeHost) ResolveObject(_ context.Context, name string) (mgl64.Vec3, error) {
	loc, ok := h.objects[name]
	if !ok {
		return mgl64.Vec3{}, errors.NotFound("object", name)
	}
	return loc, nil
}

func (h *fakeHost) Camera() Camera             { return &h.camera }
func (h *fakeHost) AnimationRange() (int, int) { return h.start, h.end }
func (h *fakeHost) CurrentFrame() int          { return h.current }
func (h *fakeHost) SetCurrentFrame(frame int)  { h.current = frame }

func (h *fakeHost) ConfigureOutput(width, height int, format string) error {
	h.width, h.height, h.format = width, height, format
	return nil
}

func (h *fakeHost) RenderFrame(_ context.Context, path string) error {
	i := len(h.renders)
	if i == h.failAt {
		return fmt.Errorf("write %s: no space left on device", path)
	}
	h.renders = append(h.renders, renderCall{Path: path, Frame: h.current, Pose: h.camera.pose})
	if h.onRender != nil {
		h.onRender(i)
	}
	return nil
}

func newTestPlanner() *Planner {
	return New(Deps{Log: logger.Discard(), OutputRoot: "renders"})
}

func jobConfig(frames int) Config {
	cfg := DefaultConfig()
	cfg.ObjectName = "Suzanne"
	cfg.NumFrames = frames
	cfg.OutputPath = "out"
	return cfg
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestRunFourFrames(t *testing.T) {
	host := newFakeHost()

	res, err := newTestPlanner().Run(context.Background(), host, jobConfig(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPaths := []string{
		filepath.Join("out", "0"),
		filepath.Join("out", "1"),
		filepath.Join("out", "2"),
		filepath.Join("out", "3"),
	}
	var gotPaths []string
	for _, r := range host.renders {
		gotPaths = append(gotPaths, r.Path)
	}
	if diff := cmp.Diff(wantPaths, gotPaths); diff != "" {
		t.Errorf("render paths mismatch (-want +got):\n%s", diff)
	}

	for i, r := range host.renders {
		wantYaw := float64(i) * math.Pi / 2
		if math.Abs(r.Pose.Rotation.Yaw-wantYaw) > 1e-12 {
			t.Errorf("frame %d: expected yaw %v, got %v", i, wantYaw, r.Pose.Rotation.Yaw)
		}
	}

	second := host.renders[1].Pose.Position
	if second.Sub(mgl64.Vec3{10, 0, DefaultElevation}).Len() > 1e-9 {
		t.Errorf("expected second frame at (10, 0, 5), got %v", second)
	}

	if host.width != 1024 || host.height != 1024 || host.format != FormatPNG {
		t.Errorf("expected output 1024x1024 PNG, got %dx%d %s", host.width, host.height, host.format)
	}
	if host.camera.pose != res.Initial {
		t.Errorf("expected camera back at initial pose, got %+v", host.camera.pose)
	}
	if len(res.Frames) != 4 {
		t.Errorf("expected 4 frames in result, got %d", len(res.Frames))
	}
}

func TestRunMatchesPlan(t *testing.T) {
	host := newFakeHost()
	host.start, host.end = 1, 3
	cfg := jobConfig(7)
	cfg.FramePad = 3

	got, err := newTestPlanner().Run(context.Background(), host, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, err := Plan(mgl64.Vec3{}, cfg, "renders", Cursor{Start: 1, End: 3})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}

	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("run and plan disagree (-plan +run):\n%s", diff)
	}
}

func TestRunAdvancesAndWrapsCursor(t *testing.T) {
	host := newFakeHost()
	host.start, host.end = 1, 3

	if _, err := newTestPlanner().Run(context.Background(), host, jobConfig(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen []int
	for _, r := range host.renders {
		seen = append(seen, r.Frame)
	}

	// The wrap check follows the render, so end+1 is rendered once.
	want := []int{2, 3, 4, 2, 3}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("animation frames mismatch (-want +got):\n%s", diff)
	}
	if host.current != 3 {
		t.Errorf("expected cursor left at 3, got %d", host.current)
	}
}

func TestRunWithoutAnimationLeavesCursor(t *testing.T) {
	host := newFakeHost()
	cfg := jobConfig(3)
	cfg.Animation = false

	if _, err := newTestPlanner().Run(context.Background(), host, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range host.renders {
		if r.Frame != 42 {
			t.Errorf("expected cursor pinned at 42, got %d", r.Frame)
		}
	}
	if host.current != 42 {
		t.Errorf("expected cursor untouched, got %d", host.current)
	}
}

func TestRunUnknownObject(t *testing.T) {
	host := newFakeHost()
	cfg := jobConfig(4)
	cfg.ObjectName = "Cube"

	res, err := newTestPlanner().Run(context.Background(), host, cfg)
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !errors.IsNotFound(errors.Unwrap(err)) {
		t.Errorf("expected not found cause, got %v", errors.Unwrap(err))
	}
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
	if len(host.renders) != 0 {
		t.Errorf("expected zero renders, got %d", len(host.renders))
	}
	if host.camera.sets != 0 {
		t.Error("expected camera untouched")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	host := newFakeHost()

	_, err := newTestPlanner().Run(context.Background(), host, jobConfig(0))
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(host.renders) != 0 {
		t.Errorf("expected zero renders, got %d", len(host.renders))
	}
}

func TestRunGeometryError(t *testing.T) {
	host := newFakeHost()
	host.objects["Suzanne"] = mgl64.Vec3{10, 0, 0}

	_, err := newTestPlanner().Run(context.Background(), host, jobConfig(4))
	if !errors.IsGeometry(err) {
		t.Fatalf("expected geometry error, got %v", err)
	}
	if len(host.renders) != 0 {
		t.Errorf("expected zero renders, got %d", len(host.renders))
	}
}

func TestRunRenderFailureAborts(t *testing.T) {
	host := newFakeHost()
	host.failAt = 2

	res, err := newTestPlanner().Run(context.Background(), host, jobConfig(6))
	if !errors.IsRenderIO(err) {
		t.Fatalf("expected render io error, got %v", err)
	}
	if got := errors.GetFields(err)["frame_index"]; got != 2 {
		t.Errorf("expected frame_index=2, got %v", got)
	}
	if len(res.Frames) != 2 {
		t.Errorf("expected the two frames written before the failure, got %d", len(res.Frames))
	}
	if len(host.renders) != 2 {
		t.Errorf("expected no renders after the failure, got %d", len(host.renders))
	}
}

func TestRunCanceledBetweenFrames(t *testing.T) {
	host := newFakeHost()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	host.onRender = func(i int) {
		if i == 1 {
			cancel()
		}
	}

	res, err := newTestPlanner().Run(ctx, host, jobConfig(8))
	if !errors.IsCanceled(err) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled in chain")
	}
	if len(res.Frames) != 2 {
		t.Errorf("expected 2 frames before cancel, got %d", len(res.Frames))
	}
}

func TestRunMaxFrames(t *testing.T) {
	host := newFakeHost()
	cfg := jobConfig(MaxFrames)
	cfg.Radius = MaxRadius

	res, err := newTestPlanner().Run(context.Background(), host, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, f := range res.Frames {
		p := f.Pose.Position
		if r := math.Hypot(p.X(), p.Y()); math.Abs(r-MaxRadius) > 1e-9 {
			t.Fatalf("frame %d: radius drifted to %v", f.Index, r)
		}
	}
	if host.camera.pose != res.Initial {
		t.Error("expected camera back at initial pose after a full orbit")
	}
}
