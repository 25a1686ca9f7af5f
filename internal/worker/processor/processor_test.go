package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/google/go-cmp/cmp"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
	"turntable/internal/ports"
	"turntable/internal/scene"
)

func TestJobParser(t *testing.T) {
	jp := NewJobParser("/data")

	j, err := jp.Parse("job_7", `{"object_name":"Suzanne","num_frames":12,"output_path":"/etc"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Config.NumFrames != 12 || j.Config.ObjectName != "Suzanne" {
		t.Errorf("unexpected config %+v", j.Config)
	}
	if want := filepath.Join("/data", "renders", "job_7"); j.Config.OutputPath != want {
		t.Errorf("expected output pinned to %s, got %s", want, j.Config.OutputPath)
	}
	if j.RequestedOutput != "/etc" {
		t.Errorf("expected requested output reported, got %q", j.RequestedOutput)
	}

	for _, body := range []string{"", "  ", `{"num_frames":0}`, `{"object_name":"A","camera_radius":0.01}`} {
		if _, err := jp.Parse("job_7", body); !errors.IsConfiguration(err) {
			t.Errorf("params %q: expected configuration error, got %v", body, err)
		}
	}
}

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("/data", filepath.Join("/data", "renders", "job_1", "0.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "renders/job_1/0.png" {
		t.Errorf("expected renders/job_1/0.png, got %s", key)
	}

	for _, p := range []string{"/tmp/0.png", "/data"} {
		if _, err := ObjectKey("/data", p); !errors.IsRenderIO(err) {
			t.Errorf("%s: expected render io error, got %v", p, err)
		}
	}
}

func TestMimeAndExt(t *testing.T) {
	if got := MimeForFormat("png"); got != "image/png" {
		t.Errorf("expected image/png, got %s", got)
	}
	if got := ExtFromMime(" model/gltf-binary "); got != ".glb" {
		t.Errorf("expected .glb, got %s", got)
	}
	if got := ExtFromMime("application/zip"); got != "" {
		t.Errorf("expected no extension, got %s", got)
	}
	if got := SanitizeFilename("../meshes/My Mesh"); got != "_meshes_My_Mesh" {
		t.Errorf("unexpected sanitized name %s", got)
	}
}

type fakeRegistrar struct {
	reqs []RegisterFrameRequest
	err  error
}

func (f *fakeRegistrar) RegisterFrame(_ context.Context, req RegisterFrameRequest) (*FrameResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reqs = append(f.reqs, req)
	return &FrameResult{AssetID: fmt.Sprintf("ast_%d", req.Index)}, nil
}

func TestRendererAdapterRegistersEachFrame(t *testing.T) {
	var rendered []string
	backend := scene.BackendFunc(func(_ context.Context, req scene.FrameRequest) error {
		rendered = append(rendered, req.File)
		return nil
	})
	reg := &fakeRegistrar{}
	adapter := NewRendererAdapter(backend, reg, "job_1")

	sc, err := scene.ForObject(scene.Object{Name: "Suzanne", Mesh: "meshes/suzanne.glb"}, adapter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := orbit.DefaultConfig()
	cfg.ObjectName = "Suzanne"
	cfg.NumFrames = 3
	cfg.OutputPath = FramesDir("/data", "job_1")

	if _, err := orbit.New(orbit.Deps{}).Run(context.Background(), sc, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var indexes []int
	for _, r := range reg.reqs {
		if r.JobID != "job_1" {
			t.Errorf("expected job_1, got %s", r.JobID)
		}
		indexes = append(indexes, r.Index)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, indexes); diff != "" {
		t.Errorf("indexes mismatch (-want +got):\n%s", diff)
	}
	if len(rendered) != 3 || adapter.Registered() != 3 {
		t.Errorf("expected 3 rendered and registered, got %d and %d", len(rendered), adapter.Registered())
	}
}

func TestRendererAdapterStopsOnRegisterFailure(t *testing.T) {
	backend := scene.BackendFunc(func(context.Context, scene.FrameRequest) error { return nil })
	reg := &fakeRegistrar{err: fmt.Errorf("drive quota exceeded")}
	adapter := NewRendererAdapter(backend, reg, "job_1")

	err := adapter.Render(context.Background(), scene.FrameRequest{File: "/data/renders/job_1/0.png"})
	if err == nil {
		t.Fatal("expected registration error")
	}
	if adapter.Registered() != 0 {
		t.Errorf("expected nothing registered, got %d", adapter.Registered())
	}
}

type fakeProvider struct {
	name string
}

func (p fakeProvider) Provider() string { return p.name }

func (fakeProvider) PutObject(context.Context, ports.PutObjectInput) (ports.PutObjectOutput, error) {
	return ports.PutObjectOutput{}, nil
}

func (fakeProvider) GetObject(context.Context, string) (io.ReadCloser, string, int64, error) {
	return nil, "", 0, os.ErrNotExist
}

func (fakeProvider) DeleteObject(context.Context, string) error { return nil }

func (fakeProvider) GetSignedURL(context.Context, string, time.Duration) (ports.SignedURLOutput, error) {
	return ports.SignedURLOutput{}, nil
}

func TestCleanupJob(t *testing.T) {
	tests := []struct {
		name         string
		provider     string
		cleanupLocal bool
		leftover     bool
		wantFrames   bool
	}{
		{"localfs keeps frames", "localfs", true, false, true},
		{"gdrive without flag keeps frames", "gdrive", false, false, true},
		{"gdrive removes empty folder", "gdrive", true, false, false},
		{"gdrive keeps folder with leftovers", "gdrive", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			frames := FramesDir(root, "job_1")
			inputs := InputsDir(root, "job_1")
			for _, d := range []string{frames, inputs} {
				if err := os.MkdirAll(d, 0o755); err != nil {
					t.Fatal(err)
				}
			}
			if err := os.WriteFile(filepath.Join(inputs, "mesh.glb"), []byte("glTF"), 0o644); err != nil {
				t.Fatal(err)
			}
			if tt.leftover {
				if err := os.WriteFile(filepath.Join(frames, "0.png"), []byte("png"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			c := NewCleanup(root, tt.cleanupLocal, fakeProvider{name: tt.provider})
			if err := c.CleanupJob("job_1"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err := os.Stat(frames)
			if exists := err == nil; exists != tt.wantFrames {
				t.Errorf("expected frames dir exists=%v, got %v", tt.wantFrames, exists)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "render failed", 2000, "render failed"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"inside multibyte rune", "abéé", 3, "ab"},
		{"on rune boundary", "abéé", 4, "abé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateText(tt.in, tt.n); got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}

	long := strings.Repeat("x", maxErrorText-1) + "é tail"
	got := truncateText(long, maxErrorText)
	if !utf8.ValidString(got) || len(got) != maxErrorText-1 {
		t.Errorf("expected valid utf-8 of %d bytes, got %d bytes valid=%v", maxErrorText-1, len(got), utf8.ValidString(got))
	}
}
