package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type Material struct {
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
	// Softness in [0, 1): share of a positional error left uncorrected per
	// solver iteration. It also widens the contact margin of fast bodies.
	Softness float64
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	ID     uuid.UUID
	Handle int

	// Spatial properties
	// PreviousTransform is the pose committed by the last update, Transform
	// the tentative pose of the update in progress
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	Velocity mgl64.Vec3 // Linear velocity (m/s)
	// Angular motion
	AngularVelocity mgl64.Vec3 // rad/s

	InverseMass         float64    // 0 for immovable bodies
	InertiaLocal        mgl64.Mat3 // Diagonal inertia tensor in body space
	InverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	// positional corrections accumulated during the current update
	push         mgl64.Vec3
	rotationPush mgl64.Quat

	Movable  bool
	Material Material

	// Collision geometry
	Geometry GeometryType
	// [First, Last) range into the owner's internal sphere array
	First, Last    int
	BoundingRadius float64
	// CenterOfMass is the offset of the centre of mass in the frame the
	// spheres were given in; the internal spheres are stored relative to it
	CenterOfMass mgl64.Vec3
	Plane        Plane
	Terrain      Terrain
}

// NewSpheresBody creates a movable body of the given mass whose internal
// spheres live in [first, last) of the owner's sphere array. inertia is the
// diagonal of the body-space inertia tensor.
func NewSpheresBody(transform Transform, mass float64, inertia mgl64.Vec3, first, last int, boundingRadius float64) *RigidBody {
	rb := &RigidBody{
		ID:                uuid.New(),
		PreviousTransform: transform,
		Transform:         transform,
		Geometry:          GeometrySpheres,
		First:             first,
		Last:              last,
		BoundingRadius:    boundingRadius,
		rotationPush:      mgl64.QuatIdent(),
	}

	if mass > 0 && !math.IsInf(mass, 1) {
		rb.Movable = true
		rb.InverseMass = 1.0 / mass
		rb.InertiaLocal = mgl64.Diag3(inertia)

		var inv mgl64.Vec3
		for i := 0; i < 3; i++ {
			if inertia[i] > 0 {
				inv[i] = 1.0 / inertia[i]
			}
		}
		rb.InverseInertiaLocal = mgl64.Diag3(inv)
	}

	return rb
}

// NewPlaneBody creates an immovable half-space body
func NewPlaneBody(plane Plane) *RigidBody {
	return &RigidBody{
		ID:                uuid.New(),
		PreviousTransform: NewTransform(),
		Transform:         NewTransform(),
		Geometry:          GeometryPlane,
		Plane:             Plane{Normal: plane.Normal.Normalize(), Distance: plane.Distance},
		rotationPush:      mgl64.QuatIdent(),
	}
}

// NewTerrainBody creates an immovable body backed by a ground oracle
func NewTerrainBody(terrain Terrain) *RigidBody {
	return &RigidBody{
		ID:                uuid.New(),
		PreviousTransform: NewTransform(),
		Transform:         NewTransform(),
		Geometry:          GeometryTerrain,
		Terrain:           terrain,
		rotationPush:      mgl64.QuatIdent(),
	}
}

// GetMass returns +Inf for immovable bodies
func (rb *RigidBody) GetMass() float64 {
	if !rb.Movable || rb.InverseMass == 0 {
		return math.Inf(1)
	}

	return 1.0 / rb.InverseMass
}

// AddForce accumulates a force (N) applied at the centre of mass until the next update
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.Movable {
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque accumulates a torque (N⋅m) until the next update
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.Movable {
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

// AddForceAtPoint applies force at a world-space point, producing torque
// about the centre of mass
func (rb *RigidBody) AddForceAtPoint(force, point mgl64.Vec3) {
	rb.AddForce(force)
	rb.AddTorque(point.Sub(rb.Transform.Position).Cross(force))
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// ApplyForces folds the accumulated force and torque into the velocities,
// then clears them
func (rb *RigidBody) ApplyForces(dt float64) {
	if !rb.Movable {
		rb.ClearForces()
		return
	}

	rb.Velocity = rb.Velocity.Add(rb.accumulatedForce.Mul(rb.InverseMass * dt))
	angularAccel := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))

	rb.ClearForces()
}

// Begin starts an update: the current pose becomes the committed one and
// the correction accumulators are reset
func (rb *RigidBody) Begin() {
	rb.PreviousTransform = rb.Transform
	rb.push = mgl64.Vec3{}
	rb.rotationPush = mgl64.QuatIdent()
}

// Predict recomputes the tentative pose from the committed pose, the current
// velocities and the corrections accumulated so far
func (rb *RigidBody) Predict(dt float64) {
	if !rb.Movable {
		return
	}

	rb.Transform.Position = rb.PreviousTransform.Position.Add(rb.Velocity.Mul(dt)).Add(rb.push)

	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.PreviousTransform.Rotation).Scale(0.5)
	rotation := rb.PreviousTransform.Rotation.Add(qDot.Scale(dt)).Normalize()
	rb.Transform.SetRotation(rb.rotationPush.Mul(rotation))
}

// Displace moves the tentative pose by a translation and a small rotation
// vector. The correction survives later calls to Predict within the update.
func (rb *RigidBody) Displace(translation, rotation mgl64.Vec3) {
	if !rb.Movable {
		return
	}

	rb.push = rb.push.Add(translation)
	rb.Transform.Position = rb.Transform.Position.Add(translation)

	if rotation.Len() > 1e-10 {
		// For a small angle δθ, the rotation quaternion is q_delta ≈ [1, δθ/2]
		qDelta := mgl64.Quat{W: 1.0, V: rotation.Mul(0.5)}.Normalize()
		rb.rotationPush = qDelta.Mul(rb.rotationPush).Normalize()
		rb.Transform.SetRotation(qDelta.Mul(rb.Transform.Rotation))
	}
}

// ApplyImpulse changes the momenta by impulse applied at offset r from the
// centre of mass
func (rb *RigidBody) ApplyImpulse(impulse, r mgl64.Vec3) {
	if !rb.Movable {
		return
	}

	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.InverseMass))
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(r.Cross(impulse)))
}

// ApplyPositionImpulse displaces the tentative pose as a positional impulse
// p applied at offset r would: linear share by inverse mass, rotation by
// world inverse inertia
func (rb *RigidBody) ApplyPositionImpulse(p, r mgl64.Vec3) {
	if !rb.Movable {
		return
	}

	rb.Displace(p.Mul(rb.InverseMass), rb.GetInverseInertiaWorld().Mul3x1(r.Cross(p)))
}

// ApplyAngularImpulse changes the angular momentum only
func (rb *RigidBody) ApplyAngularImpulse(impulse mgl64.Vec3) {
	if !rb.Movable {
		return
	}

	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(impulse))
}

// PointVelocity is the world velocity of the material point at offset r
func (rb *RigidBody) PointVelocity(r mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(r))
}

// EffectiveInverseMass is the generalized inverse mass seen by an impulse
// along direction n applied at offset r
func (rb *RigidBody) EffectiveInverseMass(r, n mgl64.Vec3) float64 {
	if !rb.Movable {
		return 0
	}

	rCrossN := r.Cross(n)

	return rb.InverseMass + rb.GetInverseInertiaWorld().Mul3x1(rCrossN).Dot(rCrossN)
}

// Inertie en espace monde
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	// I_world = R * I_local * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// Inverse de l'inertie en espace monde
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if !rb.Movable {
		return mgl64.Mat3{0, 0, 0, 0, 0, 0, 0, 0, 0}
	}

	// I_world^(-1) = R * I_local^(-1) * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

func (rb *RigidBody) LinearMomentum() mgl64.Vec3 {
	if !rb.Movable {
		return mgl64.Vec3{}
	}

	return rb.Velocity.Mul(rb.GetMass())
}

// AngularMomentum about the world origin: orbital plus spin
func (rb *RigidBody) AngularMomentum() mgl64.Vec3 {
	if !rb.Movable {
		return mgl64.Vec3{}
	}

	orbital := rb.Transform.Position.Cross(rb.LinearMomentum())
	spin := rb.GetInertiaWorld().Mul3x1(rb.AngularVelocity)

	return orbital.Add(spin)
}

func (rb *RigidBody) KineticEnergy() float64 {
	if !rb.Movable {
		return 0
	}

	linear := 0.5 * rb.GetMass() * rb.Velocity.Dot(rb.Velocity)
	angular := 0.5 * rb.AngularVelocity.Dot(rb.GetInertiaWorld().Mul3x1(rb.AngularVelocity))

	return linear + angular
}

// IsFinite reports whether the pose and momenta are free of NaN and Inf
func (rb *RigidBody) IsFinite() bool {
	values := []float64{rb.Transform.Rotation.W}
	for _, v := range []mgl64.Vec3{rb.Transform.Position, rb.Transform.Rotation.V, rb.Velocity, rb.AngularVelocity} {
		values = append(values, v[:]...)
	}

	for _, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}
