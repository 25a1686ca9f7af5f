package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
)

const sceneYAML = `frame_start: 1
frame_end: 2
objects:
  - name: Cube
    location: [0, 0, 0]
    mesh: cube.glb
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseFlagsJobFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	job := writeFile(t, dir, "job.yaml", "object_name: Cube\nnum_frames: 8\ncamera_radius: 5\n")

	opt, err := parseFlags([]string{"-job", job, "-frames", "12", "-pad", "3"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := orbit.DefaultConfig()
	want.ObjectName = "Cube"
	want.NumFrames = 12
	want.Radius = 5
	want.FramePad = 3
	if diff := cmp.Diff(want, opt.cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlagsValidates(t *testing.T) {
	_, err := parseFlags([]string{"-object", "Cube", "-radius", "500"}, &bytes.Buffer{})
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDryRun(t *testing.T) {
	dir := t.TempDir()
	scenePath := writeFile(t, dir, "scene.yaml", sceneYAML)

	var out bytes.Buffer
	err := run(context.Background(),
		[]string{"-scene", scenePath, "-object", "Cube", "-frames", "4", "-out", "out", "-dry-run"},
		&out, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var paths []string
	var anim []int
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var f orbit.Frame
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		paths = append(paths, f.Path)
		anim = append(anim, f.AnimationFrame)
	}

	wantPaths := []string{filepath.Join("out", "0"), filepath.Join("out", "1"), filepath.Join("out", "2"), filepath.Join("out", "3")}
	if diff := cmp.Diff(wantPaths, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 2, 3}, anim); diff != "" {
		t.Errorf("animation frames mismatch (-want +got):\n%s", diff)
	}
}

func TestDryRunUnknownObject(t *testing.T) {
	scenePath := writeFile(t, t.TempDir(), "scene.yaml", sceneYAML)

	err := run(context.Background(), []string{"-scene", scenePath, "-object", "Sphere", "-dry-run"}, &bytes.Buffer{}, &bytes.Buffer{})
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if got := errors.GetFields(err)["field"]; got != "object_name" {
		t.Errorf("expected field object_name, got %v", got)
	}
}

func TestParseFlagsJobFileErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		yaml string
	}{
		{"misspelled key", "object_name: Cube\nnum_frame: 8\n"},
		{"nan radius", "object_name: Cube\ncamera_radius: .nan\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := writeFile(t, dir, "job.yaml", tt.yaml)
			_, err := parseFlags([]string{"-job", job}, &bytes.Buffer{})
			if !errors.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestParseFlagsEmptyJobFile(t *testing.T) {
	job := writeFile(t, t.TempDir(), "job.yaml", "")
	_, err := parseFlags([]string{"-job", job, "-object", "Cube"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	scenePath := writeFile(t, t.TempDir(), "scene.yaml", sceneYAML)

	err := run(context.Background(), []string{"-scene", scenePath, "-object", "Cube", "-backend", "blender"}, &bytes.Buffer{}, &bytes.Buffer{})
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
