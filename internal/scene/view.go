package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"turntable/internal/orbit"
)

// ViewDirection returns the unit forward vector of a camera at pose. The
// camera looks down its local -Z axis and the Euler angles apply in XYZ
// order, so the world rotation is Rz(yaw) * Ry(roll) * Rx(pitch).
func ViewDirection(pose orbit.Pose) mgl64.Vec3 {
	r := pose.Rotation
	rot := mgl64.Rotate3DZ(r.Yaw).Mul3(mgl64.Rotate3DY(r.Roll)).Mul3(mgl64.Rotate3DX(r.Pitch))
	return rot.Mul3x1(mgl64.Vec3{0, 0, -1}).Normalize()
}

// ViewUp returns the camera's up vector (local +Y) in world space.
func ViewUp(pose orbit.Pose) mgl64.Vec3 {
	r := pose.Rotation
	rot := mgl64.Rotate3DZ(r.Yaw).Mul3(mgl64.Rotate3DY(r.Roll)).Mul3(mgl64.Rotate3DX(r.Pitch))
	return rot.Mul3x1(mgl64.Vec3{0, 1, 0}).Normalize()
}

// FocalPoint is the point distance units ahead of the camera.
func FocalPoint(pose orbit.Pose, distance float64) mgl64.Vec3 {
	return pose.Position.Add(ViewDirection(pose).Mul(distance))
}

// FocalPointFor uses the camera's distance to obj as the focus distance.
func FocalPointFor(pose orbit.Pose, obj Object) mgl64.Vec3 {
	return FocalPoint(pose, pose.Position.Sub(obj.Location).Len())
}
