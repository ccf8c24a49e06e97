package constraint

import (
	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// PositionConstraint keeps two body-attached points within Slack of each
// other. Inside the slack the joint is inactive.
type PositionConstraint struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	LocalA mgl64.Vec3
	LocalB mgl64.Vec3

	Slack    float64
	Softness float64
}

// Points returns the attachment points in world space
func (c *PositionConstraint) Points() (mgl64.Vec3, mgl64.Vec3) {
	return c.BodyA.Transform.ToWorld(c.LocalA), c.BodyB.Transform.ToWorld(c.LocalB)
}

// Deviation is the distance between the points beyond the slack, negative
// while the joint is slack
func (c *PositionConstraint) Deviation() float64 {
	pointA, pointB := c.Points()

	return pointB.Sub(pointA).Len() - c.Slack
}

func (c *PositionConstraint) Solve(dt float64) bool {
	bodyA := c.BodyA
	bodyB := c.BodyB

	pointA, pointB := c.Points()
	delta := pointB.Sub(pointA)
	distance := delta.Len()
	if distance <= c.Slack || distance < Epsilon {
		return false
	}

	n := delta.Mul(1.0 / distance)
	rA := pointA.Sub(bodyA.Transform.Position)
	rB := pointB.Sub(bodyB.Transform.Position)

	w := bodyA.EffectiveInverseMass(rA, n) + bodyB.EffectiveInverseMass(rB, n)
	if w < Epsilon {
		return false
	}

	// pull A toward B and B toward A
	correction := (distance - c.Slack) * (1 - clampSoftness(c.Softness))
	positionImpulse := n.Mul(correction / w)
	bodyA.ApplyPositionImpulse(positionImpulse, rA)
	bodyB.ApplyPositionImpulse(positionImpulse.Mul(-1), rB)

	// remove the relative velocity that keeps stretching the joint
	rA = bodyA.Transform.ToWorld(c.LocalA).Sub(bodyA.Transform.Position)
	rB = bodyB.Transform.ToWorld(c.LocalB).Sub(bodyB.Transform.Position)
	separatingVel := bodyB.PointVelocity(rB).Sub(bodyA.PointVelocity(rA)).Dot(n)
	if separatingVel > 0 {
		impulse := n.Mul(separatingVel / w)
		bodyA.ApplyImpulse(impulse, rA)
		bodyB.ApplyImpulse(impulse.Mul(-1), rB)
	}

	return true
}
