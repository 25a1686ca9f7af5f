package scene

import (
	"bytes"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
)

// Description is the on-disk form of a scene.
//
//	frame_start: 1
//	frame_end: 120
//	objects:
//	  - name: Suzanne
//	    location: [0, 0, 0]
//	    mesh: meshes/suzanne.glb
//	camera:
//	  position: [0, -10, 5]
//	  rotation: {pitch: 1.1, roll: 0, yaw: 0}
type Description struct {
	FrameStart int         `json:"frame_start,omitempty" yaml:"frame_start,omitempty"`
	FrameEnd   int         `json:"frame_end,omitempty" yaml:"frame_end,omitempty"`
	Objects    []Object    `json:"objects" yaml:"objects"`
	Camera     *orbit.Pose `json:"camera,omitempty" yaml:"camera,omitempty"`
}

// FrameRange returns the animation range, defaulting both ends when unset.
func (d Description) FrameRange() (start, end int) {
	if d.FrameStart == 0 && d.FrameEnd == 0 {
		return DefaultFrameStart, DefaultFrameEnd
	}
	return d.FrameStart, d.FrameEnd
}

func (d Description) Validate() error {
	start, end := d.FrameRange()
	if start > end {
		return errors.Configuration("frame_end", "frame_end %d before frame_start %d", end, start)
	}

	seen := make(map[string]struct{}, len(d.Objects))
	for i, o := range d.Objects {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			return errors.Configuration("objects", "object %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return errors.Configuration("objects", "duplicate object %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Parse decodes a YAML scene description. Unknown keys are rejected.
func Parse(data []byte) (Description, error) {
	var d Description

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Description{}, errors.WrapWithCode(err, errors.CodeConfiguration, "scene.parse", "invalid scene description")
	}
	if err := d.Validate(); err != nil {
		return Description{}, err
	}
	return d, nil
}

func LoadFile(path string) (Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Description{}, errors.WrapWithCode(err, errors.CodeConfiguration, "scene.load", "failed to read scene file").
			WithField("path", path)
	}
	return Parse(data)
}
