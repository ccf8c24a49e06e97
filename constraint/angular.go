package constraint

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// AngularConstraint keeps two body-attached axes within Slack radians of
// each other
type AngularConstraint struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
	AxisA mgl64.Vec3
	AxisB mgl64.Vec3

	Slack    float64
	Softness float64
}

// Axes returns both axes in world space, normalized
func (c *AngularConstraint) Axes() (mgl64.Vec3, mgl64.Vec3) {
	return c.BodyA.Transform.Rotation.Rotate(c.AxisA).Normalize(),
		c.BodyB.Transform.Rotation.Rotate(c.AxisB).Normalize()
}

// Angle between the world axes, in radians
func (c *AngularConstraint) Angle() float64 {
	axisA, axisB := c.Axes()

	return math.Acos(mgl64.Clamp(axisA.Dot(axisB), -1, 1))
}

func (c *AngularConstraint) Solve(dt float64) bool {
	bodyA := c.BodyA
	bodyB := c.BodyB

	axisA, axisB := c.Axes()
	angle := math.Acos(mgl64.Clamp(axisA.Dot(axisB), -1, 1))
	if angle <= c.Slack {
		return false
	}

	// rotating A about k brings it toward B, rotating B about k moves it away
	k := axisA.Cross(axisB)
	if k.Len() < Epsilon {
		return false
	}
	k = k.Normalize()

	invInertiaA := bodyA.GetInverseInertiaWorld()
	invInertiaB := bodyB.GetInverseInertiaWorld()
	w := invInertiaA.Mul3x1(k).Dot(k) + invInertiaB.Mul3x1(k).Dot(k)
	if w < Epsilon {
		return false
	}

	correction := (angle - c.Slack) * (1 - clampSoftness(c.Softness))
	angularImpulse := k.Mul(correction / w)
	bodyA.Displace(mgl64.Vec3{}, invInertiaA.Mul3x1(angularImpulse))
	bodyB.Displace(mgl64.Vec3{}, invInertiaB.Mul3x1(angularImpulse.Mul(-1)))

	openingVel := bodyB.AngularVelocity.Sub(bodyA.AngularVelocity).Dot(k)
	if openingVel > 0 {
		impulse := k.Mul(openingVel / w)
		bodyA.ApplyAngularImpulse(impulse)
		bodyB.ApplyAngularImpulse(impulse.Mul(-1))
	}

	return true
}
