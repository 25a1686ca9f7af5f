package processor

import (
	"context"

	"turntable/internal/scene"
)

type frameRegistrar interface {
	RegisterFrame(ctx context.Context, req RegisterFrameRequest) (*FrameResult, error)
}

// RendererAdapter sits between the scene and the render backend and
// registers every frame as soon as the backend has written it.
type RendererAdapter struct {
	backend scene.Backend
	outputs frameRegistrar
	jobID   string
	next    int
}

func NewRendererAdapter(backend scene.Backend, outputs frameRegistrar, jobID string) *RendererAdapter {
	return &RendererAdapter{backend: backend, outputs: outputs, jobID: jobID}
}

func (ra *RendererAdapter) Render(ctx context.Context, req scene.FrameRequest) error {
	if err := ra.backend.Render(ctx, req); err != nil {
		return err
	}

	if _, err := ra.outputs.RegisterFrame(ctx, RegisterFrameRequest{
		JobID: ra.jobID,
		Index: ra.next,
		Frame: req,
	}); err != nil {
		return err
	}
	ra.next++
	return nil
}

// Registered is the number of frames rendered and registered so far.
func (ra *RendererAdapter) Registered() int { return ra.next }
