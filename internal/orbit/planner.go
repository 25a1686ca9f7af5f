// Package orbit computes camera poses on a closed circular path around a
// target and drives a host renderer through one image per pose.
//
// A job moves through Idle, Rendering(i) for i in [0, N), and Done. Each
// iteration advances the host animation cursor, renders to {dir}/{i}, moves
// the camera to the pose for i+1, and then wraps the cursor if it ran past
// the end of the animation range. The first failure aborts the job; frames
// already written stay on disk and nothing is rolled back.
package orbit

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"turntable/internal/pkg/errors"
	"turntable/internal/pkg/logger"
)

// Frame records one rendered (or planned) image.
type Frame struct {
	Index          int    `json:"index"`
	Path           string `json:"path"`
	AnimationFrame int    `json:"animation_frame"`
	Pose           Pose   `json:"pose"`
}

// Result is the outcome of a job. On failure it holds the frames written
// before the error.
type Result struct {
	OutputPath string  `json:"output_path"`
	Initial    Pose    `json:"initial"`
	Frames     []Frame `json:"frames"`
}

type Deps struct {
	Log *logger.Logger
	// OutputRoot is the parent of per-object default output directories.
	OutputRoot string
}

// Planner runs orbit jobs. It holds no per-job state and may be shared, but
// jobs on the same Host must not overlap.
type Planner struct {
	log        *logger.Logger
	outputRoot string
}

func New(d Deps) *Planner {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Planner{
		log:        log.WithComponent("orbit"),
		outputRoot: d.OutputRoot,
	}
}

// Run executes one job against host.
func (p *Planner) Run(ctx context.Context, host Host, cfg Config) (*Result, error) {
	ctx = logger.ContextWithObject(ctx, cfg.ObjectName)
	log := p.log.FromContext(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target, err := host.ResolveObject(ctx, cfg.ObjectName)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.WrapWithCode(err, errors.CodeConfiguration, "orbit.resolve", "unknown object").
				WithField("field", "object_name")
		}
		return nil, errors.Wrap(err, "orbit.resolve", "failed to resolve object")
	}

	initial, err := InitialPose(target, cfg.Radius)
	if err != nil {
		return nil, errors.Wrap(err, "orbit.pose", "failed to aim camera at target")
	}

	cam := host.Camera()
	cam.SetPose(initial)

	if err := host.ConfigureOutput(cfg.Width, cfg.Height, FormatPNG); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeRenderIO, "orbit.output", "failed to configure output")
	}

	start, end := host.AnimationRange()
	if cfg.Animation {
		host.SetCurrentFrame(start)
	}

	res := &Result{
		OutputPath: cfg.ResolveOutputPath(p.outputRoot),
		Initial:    initial,
		Frames:     make([]Frame, 0, cfg.NumFrames),
	}

	log.Info("orbit started",
		"frames", cfg.NumFrames,
		"radius", cfg.Radius,
		"step_deg", StepAngle(cfg.NumFrames),
		"output", res.OutputPath,
		"animation", cfg.Animation,
	)

	for i := 0; i < cfg.NumFrames; i++ {
		if err := ctx.Err(); err != nil {
			return res, errors.Canceled(err, "orbit.run").WithField("frame_index", i)
		}

		cur := Cursor{Start: start, End: end, Current: host.CurrentFrame()}
		if cfg.Animation {
			host.SetCurrentFrame(cur.Advance())
		}

		path := FramePath(res.OutputPath, i, cfg.FramePad)
		pose := cam.Pose()

		if err := host.RenderFrame(ctx, path); err != nil {
			log.WithFrame(i).WithError(err).Warn("frame render failed", "path", path)
			if ctx.Err() != nil {
				return res, errors.Canceled(err, "orbit.render").WithField("frame_index", i)
			}
			return res, errors.RenderIO(err, "orbit.render", path).WithField("frame_index", i)
		}

		res.Frames = append(res.Frames, Frame{
			Index:          i,
			Path:           path,
			AnimationFrame: cur.Current,
			Pose:           pose,
		})
		log.WithFrame(i).Debug("frame rendered",
			"path", path,
			"animation_frame", cur.Current,
			"yaw", pose.Rotation.Yaw,
		)

		cam.SetPose(PoseAt(initial, i+1, cfg.NumFrames))

		if cfg.Animation && cur.Wrap() {
			host.SetCurrentFrame(cur.Current)
		}
	}

	log.Info("orbit completed", "frames", len(res.Frames))
	return res, nil
}

// Plan computes the frames Run would produce for target without rendering.
// cursor seeds the animation frame simulation; its Current is ignored and
// reset to Start as Run does.
func Plan(target mgl64.Vec3, cfg Config, outputRoot string, cursor Cursor) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	initial, err := InitialPose(target, cfg.Radius)
	if err != nil {
		return nil, errors.Wrap(err, "orbit.pose", "failed to aim camera at target")
	}

	res := &Result{
		OutputPath: cfg.ResolveOutputPath(outputRoot),
		Initial:    initial,
		Frames:     make([]Frame, 0, cfg.NumFrames),
	}

	if cfg.Animation {
		cursor.Current = cursor.Start
	}
	for i := 0; i < cfg.NumFrames; i++ {
		if cfg.Animation {
			cursor.Advance()
		}
		res.Frames = append(res.Frames, Frame{
			Index:          i,
			Path:           FramePath(res.OutputPath, i, cfg.FramePad),
			AnimationFrame: cursor.Current,
			Pose:           PoseAt(initial, i, cfg.NumFrames),
		})
		if cfg.Animation {
			cursor.Wrap()
		}
	}
	return res, nil
}
