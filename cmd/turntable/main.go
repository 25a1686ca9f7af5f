// Command turntable renders one orbit job against a scene file, locally and
// without the API, database or queue.
//
//	turntable -scene scene.yaml -object Suzanne -frames 36 -backend f3d
//	turntable -scene scene.yaml -job job.yaml -dry-run
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/yaml.v3"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
	"turntable/internal/pkg/logger"
	"turntable/internal/scene"
	"turntable/internal/worker/renderer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "turntable:", err)
		os.Exit(1)
	}
}

type options struct {
	scenePath string
	jobPath   string
	backend   string
	baseURL   string
	f3dBin    string
	outRoot   string
	dryRun    bool
	logLevel  string

	cfg orbit.Config
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opt := &options{cfg: orbit.DefaultConfig()}
	def := opt.cfg

	fs := flag.NewFlagSet("turntable", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opt.scenePath, "scene", "scene.yaml", "scene description (YAML)")
	fs.StringVar(&opt.jobPath, "job", "", "job config (YAML); flags override its values")
	fs.StringVar(&opt.backend, "backend", renderer.KindF3D, "render backend: f3d or http")
	fs.StringVar(&opt.baseURL, "renderer-url", os.Getenv("RENDERER_HTTP_BASEURL"), "render service base url for -backend http")
	fs.StringVar(&opt.f3dBin, "f3d-bin", "f3d", "f3d executable")
	fs.StringVar(&opt.outRoot, "out-root", "renders", "parent of the per-object output directory when -out is empty")
	fs.BoolVar(&opt.dryRun, "dry-run", false, "print the frame plan as JSON lines without rendering")
	fs.StringVar(&opt.logLevel, "log-level", "info", "debug, info, warn or error")

	var flagCfg orbit.Config
	fs.StringVar(&flagCfg.ObjectName, "object", "", "object to orbit")
	fs.IntVar(&flagCfg.NumFrames, "frames", def.NumFrames, "number of frames")
	fs.Float64Var(&flagCfg.Radius, "radius", def.Radius, "camera distance from the object")
	fs.IntVar(&flagCfg.Width, "width", def.Width, "frame width in pixels")
	fs.IntVar(&flagCfg.Height, "height", def.Height, "frame height in pixels")
	fs.StringVar(&flagCfg.OutputPath, "out", "", "output directory")
	fs.IntVar(&flagCfg.FramePad, "pad", 0, "zero-pad frame names to this width")
	fs.BoolVar(&flagCfg.Animation, "animation", def.Animation, "advance the animation frame with each image")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opt.jobPath != "" {
		data, err := os.ReadFile(opt.jobPath)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeConfiguration, "cli.job", "failed to read job file").
				WithField("path", opt.jobPath)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&opt.cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.WrapWithCode(err, errors.CodeConfiguration, "cli.job", "invalid job file").
				WithField("path", opt.jobPath)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "object":
			opt.cfg.ObjectName = flagCfg.ObjectName
		case "frames":
			opt.cfg.NumFrames = flagCfg.NumFrames
		case "radius":
			opt.cfg.Radius = flagCfg.Radius
		case "width":
			opt.cfg.Width = flagCfg.Width
		case "height":
			opt.cfg.Height = flagCfg.Height
		case "out":
			opt.cfg.OutputPath = flagCfg.OutputPath
		case "pad":
			opt.cfg.FramePad = flagCfg.FramePad
		case "animation":
			opt.cfg.Animation = flagCfg.Animation
		}
	})

	return opt, opt.cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opt, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Level: opt.logLevel, Format: "text", Output: stderr, ServiceName: "turntable"})

	desc, err := scene.LoadFile(opt.scenePath)
	if err != nil {
		return err
	}

	if opt.dryRun {
		return printPlan(stdout, desc, opt)
	}

	// Relative mesh paths in the scene are relative to the scene file.
	root := ""
	if opt.backend == renderer.KindF3D {
		root = filepath.Dir(opt.scenePath)
	}
	backend, err := renderer.New(renderer.Options{
		Kind:    opt.backend,
		BaseURL: opt.baseURL,
		Bin:     opt.f3dBin,
		Root:    root,
	})
	if err != nil {
		return err
	}

	sc, err := scene.New(desc, backend)
	if err != nil {
		return err
	}

	planner := orbit.New(orbit.Deps{Log: log, OutputRoot: opt.outRoot})
	res, err := planner.Run(ctx, sc, opt.cfg)
	if res != nil {
		for _, f := range res.Frames {
			fmt.Fprintln(stdout, f.Path+".png")
		}
	}
	return err
}

// printPlan writes one JSON object per frame.
func printPlan(w io.Writer, desc scene.Description, opt *options) error {
	var target *scene.Object
	for i := range desc.Objects {
		if desc.Objects[i].Name == opt.cfg.ObjectName {
			target = &desc.Objects[i]
			break
		}
	}
	if target == nil {
		return errors.WrapWithCode(errors.NotFound("object", opt.cfg.ObjectName),
			errors.CodeConfiguration, "cli.plan", "unknown object").
			WithField("field", "object_name")
	}

	start, end := desc.FrameRange()
	plan, err := orbit.Plan(target.Location, opt.cfg, opt.outRoot, orbit.Cursor{Start: start, End: end})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, f := range plan.Frames {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	return nil
}
