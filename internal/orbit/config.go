package orbit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"turntable/internal/pkg/errors"
)

// Bounds on the job configuration surface.
const (
	MinFrames     = 1
	MaxFrames     = 1080
	MinRadius     = 0.1
	MaxRadius     = 100.0
	MinResolution = 10
	MaxResolution = 2048
)

// FormatPNG is the only raster format frames are written in.
const FormatPNG = "PNG"

// Config describes one orbit render job. It is fixed for the duration of
// the job.
type Config struct {
	ObjectName string  `json:"object_name" yaml:"object_name"`
	NumFrames  int     `json:"num_frames" yaml:"num_frames"`
	Radius     float64 `json:"camera_radius" yaml:"camera_radius"`
	Width      int     `json:"resolution_x" yaml:"resolution_x"`
	Height     int     `json:"resolution_y" yaml:"resolution_y"`
	DepthMaps  bool    `json:"render_depth_maps" yaml:"render_depth_maps"`
	Animation  bool    `json:"animation_on" yaml:"animation_on"`
	OutputPath string  `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	FramePad   int     `json:"frame_padding,omitempty" yaml:"frame_padding,omitempty"`
}

// DefaultConfig returns the defaults of the render panel. Animation is on so
// the frame cursor advances with the orbit.
func DefaultConfig() Config {
	return Config{
		NumFrames: 4,
		Radius:    10.0,
		Width:     1024,
		Height:    1024,
		Animation: true,
	}
}

// Validate range-checks every field. The first violation is returned as a
// configuration error naming the field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ObjectName) == "" {
		return errors.Configuration("object_name", "object_name is required")
	}
	if c.NumFrames < MinFrames || c.NumFrames > MaxFrames {
		return errors.Configuration("num_frames", "num_frames %d outside [%d, %d]", c.NumFrames, MinFrames, MaxFrames)
	}
	// Written so NaN fails too.
	if !(c.Radius >= MinRadius && c.Radius <= MaxRadius) {
		return errors.Configuration("camera_radius", "camera_radius %g outside [%g, %g]", c.Radius, MinRadius, MaxRadius)
	}
	if c.Width < MinResolution || c.Width > MaxResolution {
		return errors.Configuration("resolution_x", "resolution_x %d outside [%d, %d]", c.Width, MinResolution, MaxResolution)
	}
	if c.Height < MinResolution || c.Height > MaxResolution {
		return errors.Configuration("resolution_y", "resolution_y %d outside [%d, %d]", c.Height, MinResolution, MaxResolution)
	}
	if c.DepthMaps {
		return errors.Configuration("render_depth_maps", "depth map rendering is not supported")
	}
	if c.FramePad < 0 || c.FramePad > 9 {
		return errors.Configuration("frame_padding", "frame_padding %d outside [0, 9]", c.FramePad)
	}
	return nil
}

// DecodeConfig reads a JSON job config over DefaultConfig and validates it.
// Unknown keys are rejected.
func DecodeConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.WrapWithCode(err, errors.CodeConfiguration, "orbit.decode", "invalid job config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultOutputPath is the per-object directory used when OutputPath is empty.
func DefaultOutputPath(root, objectName string) string {
	return filepath.Join(root, objectName)
}

// ResolveOutputPath returns OutputPath, or the per-object default under root.
func (c Config) ResolveOutputPath(root string) string {
	if p := strings.TrimSpace(c.OutputPath); p != "" {
		return p
	}
	return DefaultOutputPath(root, c.ObjectName)
}

// FrameName is the file name (without extension) of frame i.
func FrameName(i, pad int) string {
	if pad <= 0 {
		return fmt.Sprintf("%d", i)
	}
	return fmt.Sprintf("%0*d", pad, i)
}

// FramePath joins the output directory and the frame name.
func FramePath(dir string, i, pad int) string {
	return filepath.Join(dir, FrameName(i, pad))
}
