package orbit

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"turntable/internal/pkg/errors"
)

// DefaultElevation is the camera height above the orbit plane.
const DefaultElevation = 5.0

// Euler is a rotation in radians, applied X (pitch), Y (roll), then Z (yaw).
type Euler struct {
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Roll  float64 `json:"roll" yaml:"roll"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
}

// Pose is a camera position plus orientation.
type Pose struct {
	Position mgl64.Vec3 `json:"position" yaml:"position"`
	Rotation Euler      `json:"rotation" yaml:"rotation"`
}

// ApproxEqual reports whether the poses are within eps of each other, as an
// absolute distance for the position and per angle for the rotation.
func (p Pose) ApproxEqual(o Pose, eps float64) bool {
	return p.Position.Sub(o.Position).Len() <= eps &&
		math.Abs(p.Rotation.Pitch-o.Rotation.Pitch) <= eps &&
		math.Abs(p.Rotation.Roll-o.Rotation.Roll) <= eps &&
		math.Abs(p.Rotation.Yaw-o.Rotation.Yaw) <= eps
}

// Tilt returns the angle alpha between the camera-to-target offset and the
// orbit plane, computed as arccos(b/v) with
//
//	b = |(P - T).xy|
//	v = |(P - T).yz|
//
// A ratio outside [-1, 1] or a degenerate v yields a geometry error instead
// of NaN.
func Tilt(camera, target mgl64.Vec3) (float64, error) {
	d := camera.Sub(target)
	b := math.Hypot(d.X(), d.Y())
	v := math.Hypot(d.Y(), d.Z())

	ratio := b / v
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio > 1 || ratio < -1 {
		return 0, errors.Geometry("tilt undefined: arccos(%g/%g) outside [-1, 1]", b, v).
			WithFields(map[string]any{"b": b, "v": v})
	}
	return math.Acos(ratio), nil
}

// InitialPose places the camera at (0, -radius, DefaultElevation) and
// pitches it toward target. Yaw and roll start at zero.
func InitialPose(target mgl64.Vec3, radius float64) (Pose, error) {
	pos := mgl64.Vec3{0, -radius, DefaultElevation}

	alpha, err := Tilt(pos, target)
	if err != nil {
		return Pose{}, err
	}

	return Pose{
		Position: pos,
		Rotation: Euler{Pitch: math.Pi/2 - alpha},
	}, nil
}

// StepAngle is the azimuth increment in degrees between consecutive frames.
func StepAngle(numFrames int) float64 {
	return 360.0 / float64(numFrames)
}

// rotate turns p around the Z axis through the origin by theta radians.
// Elevation, pitch and roll are untouched.
func rotate(p Pose, theta float64) Pose {
	xy := mgl64.Rotate2D(theta).Mul2x1(mgl64.Vec2{p.Position.X(), p.Position.Y()})
	p.Position = mgl64.Vec3{xy.X(), xy.Y(), p.Position.Z()}
	p.Rotation.Yaw += theta
	return p
}

// Step advances p by one frame of an N-frame orbit.
func Step(p Pose, numFrames int) Pose {
	return rotate(p, mgl64.DegToRad(StepAngle(numFrames)))
}

// PoseAt returns the pose for frame i of an N-frame orbit, computed from the
// initial pose in one rotation so error does not accumulate across frames.
// Index N maps back to the initial pose.
func PoseAt(initial Pose, i, numFrames int) Pose {
	k := i % numFrames
	if k == 0 {
		return initial
	}
	return rotate(initial, float64(k)*mgl64.DegToRad(StepAngle(numFrames)))
}
