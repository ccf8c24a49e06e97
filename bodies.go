package marble

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultMaterial is the material of bodies created without friction,
// restitution or softness options
var DefaultMaterial = actor.Material{
	Restitution:     0,
	StaticFriction:  0.5,
	DynamicFriction: 0.3,
	Softness:        0,
}

type bodyOptions struct {
	orientation     mgl64.Quat
	momentum        mgl64.Vec3
	angularMomentum mgl64.Vec3
	material        actor.Material
}

type BodyOption func(*bodyOptions)

// WithOrientation sets the initial orientation of a spheres body
func WithOrientation(q mgl64.Quat) BodyOption {
	return func(o *bodyOptions) {
		o.orientation = q
	}
}

// WithMomentum sets the initial linear momentum (kg⋅m/s)
func WithMomentum(p mgl64.Vec3) BodyOption {
	return func(o *bodyOptions) {
		o.momentum = p
	}
}

// WithAngularMomentum sets the initial angular momentum about the centre of mass
func WithAngularMomentum(l mgl64.Vec3) BodyOption {
	return func(o *bodyOptions) {
		o.angularMomentum = l
	}
}

func WithFriction(static, dynamic float64) BodyOption {
	return func(o *bodyOptions) {
		o.material.StaticFriction = static
		o.material.DynamicFriction = dynamic
	}
}

func WithRestitution(restitution float64) BodyOption {
	return func(o *bodyOptions) {
		o.material.Restitution = restitution
	}
}

func WithSoftness(softness float64) BodyOption {
	return func(o *bodyOptions) {
		o.material.Softness = softness
	}
}

func newBodyOptions(opts []BodyOption) bodyOptions {
	o := bodyOptions{
		orientation: mgl64.QuatIdent(),
		material:    DefaultMaterial,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func validMaterial(m actor.Material) bool {
	for _, v := range []float64{m.Restitution, m.StaticFriction, m.DynamicFriction} {
		if !(v >= 0) || math.IsInf(v, 1) {
			return false
		}
	}

	return m.Softness >= 0 && m.Softness < 1
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}

func (s *System) addBody(body *actor.RigidBody) Handle {
	body.Handle = len(s.bodies)
	s.bodies = append(s.bodies, body)

	return Handle(body.Handle)
}

// AddPlaneBody adds an immovable half-space. The normal does not need to be
// normalized, the plane equation is scaled accordingly.
func (s *System) AddPlaneBody(plane actor.Plane, opts ...BodyOption) (Handle, bool) {
	o := newBodyOptions(opts)

	length := plane.Normal.Len()
	if length < constraint.Epsilon || !finite(plane.Normal) || math.IsNaN(plane.Distance) || math.IsInf(plane.Distance, 0) {
		s.logger.Warnf("AddPlaneBody: degenerate plane %v", plane)
		return InvalidHandle, false
	}
	if !validMaterial(o.material) {
		s.logger.Warnf("AddPlaneBody: invalid material %+v", o.material)
		return InvalidHandle, false
	}

	body := actor.NewPlaneBody(actor.Plane{
		Normal:   plane.Normal.Mul(1.0 / length),
		Distance: plane.Distance / length,
	})
	body.Material = o.material

	return s.addBody(body), true
}

// AddTerrainBody adds an immovable ground sampled through the terrain oracle
func (s *System) AddTerrainBody(terrain actor.Terrain, opts ...BodyOption) (Handle, bool) {
	o := newBodyOptions(opts)

	if terrain == nil {
		s.logger.Warnf("AddTerrainBody: nil terrain")
		return InvalidHandle, false
	}
	if !validMaterial(o.material) {
		s.logger.Warnf("AddTerrainBody: invalid material %+v", o.material)
		return InvalidHandle, false
	}

	body := actor.NewTerrainBody(terrain)
	body.Material = o.material

	return s.addBody(body), true
}

// AddSpheresBody adds a body made of the union of spheres, given in a body
// frame whose origin is placed at position. A mass of 0 or +Inf makes the
// body immovable.
//
// The spheres are recentred on the centre of mass, so the body's Transform
// tracks the centre of mass while the world geometry matches the input.
func (s *System) AddSpheresBody(mass float64, spheres []actor.Sphere, position mgl64.Vec3, opts ...BodyOption) (Handle, bool) {
	o := newBodyOptions(opts)

	if len(spheres) == 0 {
		s.logger.Warnf("AddSpheresBody: no spheres")
		return InvalidHandle, false
	}
	if math.IsNaN(mass) || mass < 0 {
		s.logger.Warnf("AddSpheresBody: invalid mass %v", mass)
		return InvalidHandle, false
	}
	for i, sphere := range spheres {
		if !(sphere.Radius > 0) || math.IsInf(sphere.Radius, 1) || !finite(sphere.Center) {
			s.logger.Warnf("AddSpheresBody: invalid sphere %d %+v", i, sphere)
			return InvalidHandle, false
		}
	}
	if !finite(position) || !finite(o.momentum) || !finite(o.angularMomentum) {
		s.logger.Warnf("AddSpheresBody: non-finite initial state")
		return InvalidHandle, false
	}
	if o.orientation.Len() < constraint.Epsilon {
		s.logger.Warnf("AddSpheresBody: degenerate orientation %v", o.orientation)
		return InvalidHandle, false
	}
	if !validMaterial(o.material) {
		s.logger.Warnf("AddSpheresBody: invalid material %+v", o.material)
		return InvalidHandle, false
	}

	com, inertia := actor.ComputeMassProperties(spheres, mass)

	first := len(s.spheres)
	for _, sphere := range spheres {
		s.spheres = append(s.spheres, actor.Sphere{Center: sphere.Center.Sub(com), Radius: sphere.Radius})
	}
	local := s.spheres[first:]

	transform := actor.NewTransform()
	transform.SetRotation(o.orientation)
	transform.Position = position.Add(transform.Rotation.Rotate(com))

	body := actor.NewSpheresBody(transform, mass, inertia, first, len(s.spheres), actor.BoundingRadius(local))
	body.CenterOfMass = com
	body.Material = o.material

	if body.Movable {
		body.Velocity = o.momentum.Mul(body.InverseMass)
		body.AngularVelocity = body.GetInverseInertiaWorld().Mul3x1(o.angularMomentum)
	}

	return s.addBody(body), true
}

// AddNonCollidingPair disables collisions between two bodies. It returns
// false for unknown handles, a body paired with itself or a pair already
// registered.
func (s *System) AddNonCollidingPair(a, b Handle) bool {
	if !s.valid(a) || !s.valid(b) || a == b {
		s.logger.Warnf("AddNonCollidingPair: invalid pair (%d, %d)", a, b)
		return false
	}

	pair := makeHandlePair(a, b)
	if _, ok := s.nonColliding[pair]; ok {
		s.logger.Warnf("AddNonCollidingPair: pair (%d, %d) already registered", a, b)
		return false
	}
	s.nonColliding[pair] = struct{}{}

	return true
}

// collidable filters the pairs that never produce contacts
func (s *System) collidable(a, b int) bool {
	if !s.bodies[a].Movable && !s.bodies[b].Movable {
		return false
	}
	_, excluded := s.nonColliding[makeHandlePair(Handle(a), Handle(b))]

	return !excluded
}
