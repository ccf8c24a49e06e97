package marble

import (
	"math"

	"github.com/akmonengine/marble/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

type constraintOptions struct {
	slack    float64
	softness float64
}

type ConstraintOption func(*constraintOptions)

// WithSlack sets the distance (position joints) or angle in radians (angular
// joints) tolerated before the joint acts
func WithSlack(slack float64) ConstraintOption {
	return func(o *constraintOptions) {
		o.slack = slack
	}
}

// WithConstraintSoftness sets the share of the error left uncorrected at
// each solver iteration, in [0, 1)
func WithConstraintSoftness(softness float64) ConstraintOption {
	return func(o *constraintOptions) {
		o.softness = softness
	}
}

func (s *System) constraintOptions(name string, opts []ConstraintOption) (constraintOptions, bool) {
	var o constraintOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !(o.slack >= 0) || math.IsInf(o.slack, 1) {
		s.logger.Warnf("%s: invalid slack %v", name, o.slack)
		return o, false
	}
	if !(o.softness >= 0 && o.softness < 1) {
		s.logger.Warnf("%s: softness %v out of [0, 1)", name, o.softness)
		return o, false
	}

	return o, true
}

func (s *System) jointBodies(name string, a, b Handle) bool {
	if !s.valid(a) || !s.valid(b) || a == b {
		s.logger.Warnf("%s: invalid bodies (%d, %d)", name, a, b)
		return false
	}
	if !s.bodies[a].Movable && !s.bodies[b].Movable {
		s.logger.Warnf("%s: bodies %d and %d are both immovable", name, a, b)
		return false
	}

	return true
}

// AddPositionConstraint keeps localA on body a and localB on body b within
// the slack distance. Local points are expressed in the frame the body was
// created in.
func (s *System) AddPositionConstraint(a Handle, localA mgl64.Vec3, b Handle, localB mgl64.Vec3, opts ...ConstraintOption) bool {
	const name = "AddPositionConstraint"

	if !s.jointBodies(name, a, b) {
		return false
	}
	if !finite(localA) || !finite(localB) {
		s.logger.Warnf("%s: non-finite attachment point", name)
		return false
	}
	o, ok := s.constraintOptions(name, opts)
	if !ok {
		return false
	}

	bodyA, bodyB := s.bodies[a], s.bodies[b]
	s.joints = append(s.joints, &constraint.PositionConstraint{
		BodyA:    bodyA,
		BodyB:    bodyB,
		LocalA:   localA.Sub(bodyA.CenterOfMass),
		LocalB:   localB.Sub(bodyB.CenterOfMass),
		Slack:    o.slack,
		Softness: o.softness,
	})

	return true
}

// AddAngularConstraint keeps axisA of body a and axisB of body b within the
// slack angle. Axes are expressed in body space.
func (s *System) AddAngularConstraint(a Handle, axisA mgl64.Vec3, b Handle, axisB mgl64.Vec3, opts ...ConstraintOption) bool {
	const name = "AddAngularConstraint"

	if !s.jointBodies(name, a, b) {
		return false
	}
	if !finite(axisA) || !finite(axisB) || axisA.Len() < constraint.Epsilon || axisB.Len() < constraint.Epsilon {
		s.logger.Warnf("%s: degenerate axis", name)
		return false
	}
	o, ok := s.constraintOptions(name, opts)
	if !ok {
		return false
	}

	s.joints = append(s.joints, &constraint.AngularConstraint{
		BodyA:    s.bodies[a],
		BodyB:    s.bodies[b],
		AxisA:    axisA.Normalize(),
		AxisB:    axisB.Normalize(),
		Slack:    o.slack,
		Softness: o.softness,
	})

	return true
}
