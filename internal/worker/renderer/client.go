package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	contracts "turntable/internal/contracts/renderer/v1"
	"turntable/internal/pkg/errors"
	"turntable/internal/pkg/logger"
	"turntable/internal/scene"
)

// HTTPClient renders frames through a remote renderer that shares the
// storage root with the worker.
type HTTPClient struct {
	baseURL string
	root    string
	client  *http.Client
}

func NewHTTPClient(baseURL, root string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		root:    root,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *HTTPClient) Render(ctx context.Context, req scene.FrameRequest) error {
	key, err := c.objectKey(req.File)
	if err != nil {
		return err
	}
	spec := FrameSpec(logger.JobIDFromContext(ctx), key, req)
	return c.post(ctx, "/render/frame", spec)
}

// FrameSpec converts a frame request into the wire contract.
func FrameSpec(jobID, objectKey string, req scene.FrameRequest) contracts.FrameSpec {
	r := req.Pose.Rotation
	return contracts.FrameSpec{
		JobID:          jobID,
		Frame:          filepath.Base(req.Path),
		AnimationFrame: req.Frame,
		Object: contracts.Object{
			Name: req.Object.Name,
			Mesh: req.Object.Mesh,
		},
		Camera: contracts.Camera{
			Position:   contracts.Vec3(req.Pose.Position),
			Rotation:   contracts.Rotation{Pitch: r.Pitch, Roll: r.Roll, Yaw: r.Yaw},
			FocalPoint: contracts.Vec3(scene.FocalPointFor(req.Pose, req.Object)),
			ViewUp:     contracts.Vec3(scene.ViewUp(req.Pose)),
		},
		Output: contracts.Output{
			Width:     req.Width,
			Height:    req.Height,
			Format:    req.Format,
			ObjectKey: objectKey,
		},
	}
}

func (c *HTTPClient) objectKey(file string) (string, error) {
	if c.root == "" {
		return filepath.ToSlash(file), nil
	}
	rel, err := filepath.Rel(c.root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Newf(errors.CodeRenderIO, "frame %s is outside storage root %s", file, c.root)
	}
	return filepath.ToSlash(rel), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, spec any) error {
	body, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "renderer.post", "renderer unreachable")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return errors.Newf(errors.CodeRenderIO, "renderer http %d", res.StatusCode).
			WithField("body", strings.TrimSpace(string(msg)))
	}
	return nil
}
