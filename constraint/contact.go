package constraint

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactConstraint is the collision record between two internal spheres,
// or between an internal sphere and a plane/terrain body (SphereA is -1).
// It lives for the whole update so that Lambda accumulates across iterations.
type ContactConstraint struct {
	BodyA   *actor.RigidBody
	BodyB   *actor.RigidBody
	SphereA int
	SphereB int
	// contact points on each surface, in the body's local frame
	LocalA mgl64.Vec3
	LocalB mgl64.Vec3
	// Normal points from A to B
	Normal mgl64.Vec3
	// Separation is the signed gap between the surfaces, negative when penetrating
	Separation float64
	// Lambda is the accumulated normal impulse of the update, never negative
	Lambda float64

	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64
	Softness        float64

	targetVelocity float64
}

// NewContactConstraint combines the materials of both bodies
func NewContactConstraint(bodyA, bodyB *actor.RigidBody, sphereA, sphereB int) *ContactConstraint {
	return &ContactConstraint{
		BodyA:           bodyA,
		BodyB:           bodyB,
		SphereA:         sphereA,
		SphereB:         sphereB,
		Restitution:     ComputeRestitution(bodyA.Material, bodyB.Material),
		StaticFriction:  ComputeStaticFriction(bodyA.Material, bodyB.Material),
		DynamicFriction: ComputeDynamicFriction(bodyA.Material, bodyB.Material),
		Softness:        ComputeSoftness(bodyA.Material, bodyB.Material),
	}
}

// SetGeometry stores the world contact points and normal measured at the
// current tentative poses
func (c *ContactConstraint) SetGeometry(pointA, pointB, normal mgl64.Vec3, separation float64) {
	c.LocalA = c.BodyA.Transform.ToLocal(pointA)
	c.LocalB = c.BodyB.Transform.ToLocal(pointB)
	c.Normal = normal
	c.Separation = separation
}

// arms returns the offsets of the contact points from each centre of mass
func (c *ContactConstraint) arms() (mgl64.Vec3, mgl64.Vec3) {
	rA := c.BodyA.Transform.Rotation.Rotate(c.LocalA)
	rB := c.BodyB.Transform.Rotation.Rotate(c.LocalB)

	return rA, rB
}

// NormalVelocity is the relative velocity of B with respect to A along the
// normal, negative when the bodies approach
func (c *ContactConstraint) NormalVelocity() float64 {
	rA, rB := c.arms()
	relativeVel := c.BodyB.PointVelocity(rB).Sub(c.BodyA.PointVelocity(rA))

	return relativeVel.Dot(c.Normal)
}

// Prepare fixes the velocity the contact must reach: the approach velocity
// measured before any impulse of this update, reversed and scaled by the
// restitution. Approaches slower than restitutionThreshold do not bounce.
func (c *ContactConstraint) Prepare(restitutionThreshold float64) {
	normalVelPrev := c.NormalVelocity()

	c.targetVelocity = 0
	if normalVelPrev < -restitutionThreshold {
		c.targetVelocity = -c.Restitution * normalVelPrev
	}
	c.Lambda = 0
}

func (c *ContactConstraint) effectiveMass(rA, rB, direction mgl64.Vec3) float64 {
	return c.BodyA.EffectiveInverseMass(rA, direction) + c.BodyB.EffectiveInverseMass(rB, direction)
}

// SolveVelocity applies the normal impulse needed to reach the target
// velocity (sequential impulses, the accumulated impulse is clamped to stay
// repulsive) and a Coulomb friction impulse. It returns the normal impulse
// applied by this call.
func (c *ContactConstraint) SolveVelocity() float64 {
	bodyA := c.BodyA
	bodyB := c.BodyB
	rA, rB := c.arms()

	effectiveMassNormal := c.effectiveMass(rA, rB, c.Normal)
	if effectiveMassNormal < Epsilon {
		return 0
	}

	normalVel := c.NormalVelocity()
	deltaLambda := (c.targetVelocity - normalVel) / effectiveMassNormal

	// Prevent attractive impulses
	newLambda := math.Max(c.Lambda+deltaLambda, 0)
	applied := newLambda - c.Lambda
	c.Lambda = newLambda

	normalImpulse := c.Normal.Mul(applied)
	bodyA.ApplyImpulse(normalImpulse.Mul(-1), rA)
	bodyB.ApplyImpulse(normalImpulse, rB)

	// Only if there is a normal force
	if applied <= 0 {
		return applied
	}

	relativeVel := bodyB.PointVelocity(rB).Sub(bodyA.PointVelocity(rA))
	tangentVel := relativeVel.Sub(c.Normal.Mul(relativeVel.Dot(c.Normal)))
	tangentSpeed := tangentVel.Len()
	if tangentSpeed <= 1e-6 {
		return applied
	}

	tangentDir := tangentVel.Mul(1.0 / tangentSpeed)
	effectiveMassTangent := c.effectiveMass(rA, rB, tangentDir)
	if effectiveMassTangent < Epsilon {
		return applied
	}

	// Impulse to cancel tangential velocity
	lambdaTangent := tangentSpeed / effectiveMassTangent

	// Coulomb's law: |F_friction| ≤ μ * |F_normal|
	if lambdaTangent > c.StaticFriction*applied {
		lambdaTangent = math.Min(lambdaTangent, c.DynamicFriction*applied)
	}

	frictionImpulse := tangentDir.Mul(-lambdaTangent)
	bodyA.ApplyImpulse(frictionImpulse.Mul(-1), rA)
	bodyB.ApplyImpulse(frictionImpulse, rB)

	return applied
}

// SolvePosition removes the penetration left once the velocity impulse of
// this iteration is accounted for. appliedImpulse is the value returned by
// SolveVelocity. It returns the correction applied along the normal.
func (c *ContactConstraint) SolvePosition(dt, appliedImpulse float64) float64 {
	rA, rB := c.arms()

	effectiveMassNormal := c.effectiveMass(rA, rB, c.Normal)
	if effectiveMassNormal < Epsilon {
		return 0
	}

	// the separation at the next prediction grows by Δv_n * dt
	separation := c.Separation + appliedImpulse*effectiveMassNormal*dt
	if separation >= 0 {
		return 0
	}

	correction := -separation * (1 - c.Softness)
	positionImpulse := c.Normal.Mul(correction / effectiveMassNormal)

	c.BodyA.ApplyPositionImpulse(positionImpulse.Mul(-1), rA)
	c.BodyB.ApplyPositionImpulse(positionImpulse, rB)
	c.Separation += correction

	return correction
}
