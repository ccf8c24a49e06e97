package marble

import (
	"cmp"
	"math"
	"slices"

	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// solverTolerance is the impulse or displacement under which an iteration
// is considered idle
const solverTolerance = 1e-9

// contactKey identifies a collision record within an update. SphereA is -1
// when body A is a plane or terrain.
type contactKey struct {
	BodyA, SphereA, BodyB, SphereB int
}

func compareContactKeys(a, b contactKey) int {
	if c := cmp.Compare(a.BodyA, b.BodyA); c != 0 {
		return c
	}
	if c := cmp.Compare(a.BodyB, b.BodyB); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SphereA, b.SphereA); c != 0 {
		return c
	}
	return cmp.Compare(a.SphereB, b.SphereB)
}

type activeContact struct {
	key     contactKey
	contact *constraint.ContactConstraint
}

// detectCollisions runs the broad and narrow phases on the tentative poses.
// It fills s.active with the contacts found, in key order, and returns how
// many of them were not known yet in this update.
func (s *System) detectCollisions(dt float64) int {
	s.active = s.active[:0]

	fresh := 0
	for _, pair := range s.candidatePairs(dt) {
		fresh += s.narrowPhase(s.bodies[pair.A], s.bodies[pair.B], dt)
	}

	slices.SortFunc(s.active, func(a, b activeContact) int {
		return compareContactKeys(a.key, b.key)
	})

	return fresh
}

// candidatePairs returns the broad phase pairs between spheres bodies plus
// every movable spheres body against every plane and terrain, sorted by handle
func (s *System) candidatePairs(dt float64) []bodyPair {
	s.handles = s.handles[:0]
	s.bounds = s.bounds[:0]
	s.statics = s.statics[:0]

	var maxSoftness float64
	for _, body := range s.bodies {
		maxSoftness = math.Max(maxSoftness, body.Material.Softness)
	}

	for h, body := range s.bodies {
		if body.Geometry != actor.GeometrySpheres {
			s.statics = append(s.statics, h)
			continue
		}

		// two inflated spheres overlap whenever the contact margin of the pair
		// is reached: (sA+sB)|vB-vA| <= (sA+max)|vA| + (sB+max)|vB|
		inflate := s.config.ContactMargin/2 + (body.Material.Softness+maxSoftness)*body.Velocity.Len()*dt
		s.handles = append(s.handles, h)
		s.bounds = append(s.bounds, BoundingSphere{Center: body.Transform.Position, Radius: body.BoundingRadius + inflate})
	}

	s.broadPhase.update(s.handles, s.bounds)

	var pairs []bodyPair
	for _, pair := range s.broadPhase.pairs() {
		if s.collidable(pair.A, pair.B) {
			pairs = append(pairs, pair)
		}
	}

	for _, static := range s.statics {
		for _, h := range s.handles {
			if !s.bodies[h].Movable || !s.collidable(static, h) {
				continue
			}
			pairs = append(pairs, bodyPair{A: min(static, h), B: max(static, h)})
		}
	}

	slices.SortFunc(pairs, func(a, b bodyPair) int {
		if c := cmp.Compare(a.A, b.A); c != 0 {
			return c
		}
		return cmp.Compare(a.B, b.B)
	})

	return pairs
}

// contactMargin widens the contact distance of soft, fast pairs so that they
// start interacting before the surfaces touch
func (s *System) contactMargin(a, b *actor.RigidBody, dt float64) float64 {
	relativeSpeed := b.Velocity.Sub(a.Velocity).Len()

	return s.config.ContactMargin + (a.Material.Softness+b.Material.Softness)*relativeSpeed*dt
}

// narrowPhase tests every internal sphere pair of two bodies and returns the
// number of new contacts
func (s *System) narrowPhase(a, b *actor.RigidBody, dt float64) int {
	// surfaces are always body A so that normals point toward the spheres
	if b.Geometry != actor.GeometrySpheres {
		a, b = b, a
	}
	margin := s.contactMargin(a, b, dt)

	switch a.Geometry {
	case actor.GeometrySpheres:
		return s.collideSpheres(a, b, margin)
	case actor.GeometryPlane:
		plane := a.Plane
		return s.collideSurface(a, b, margin, func(mgl64.Vec3) (actor.Plane, bool) {
			return plane, true
		})
	case actor.GeometryTerrain:
		return s.collideSurface(a, b, margin, a.Terrain.SurfaceAt)
	}

	return 0
}

func (s *System) collideSpheres(a, b *actor.RigidBody, margin float64) int {
	reach := a.BoundingRadius + b.BoundingRadius + margin
	if b.Transform.Position.Sub(a.Transform.Position).Len() > reach {
		return 0
	}

	fresh := 0
	for i := a.First; i < a.Last; i++ {
		centerA := s.worldCenters[i]
		radiusA := s.spheres[i].Radius

		for j := b.First; j < b.Last; j++ {
			centerB := s.worldCenters[j]
			radiusB := s.spheres[j].Radius

			delta := centerB.Sub(centerA)
			distance := delta.Len()
			separation := distance - radiusA - radiusB
			if separation > margin {
				continue
			}
			// concentric spheres have no contact normal
			if distance < constraint.Epsilon {
				continue
			}

			normal := delta.Mul(1.0 / distance)
			pointA := centerA.Add(normal.Mul(radiusA))
			pointB := centerB.Sub(normal.Mul(radiusB))
			if s.record(a, i, b, j, pointA, pointB, normal, separation) {
				fresh++
			}
		}
	}

	return fresh
}

// collideSurface tests the spheres of b against the local plane returned by
// surfaceAt for each sphere centre
func (s *System) collideSurface(a, b *actor.RigidBody, margin float64, surfaceAt func(mgl64.Vec3) (actor.Plane, bool)) int {
	fresh := 0
	for j := b.First; j < b.Last; j++ {
		center := s.worldCenters[j]
		radius := s.spheres[j].Radius

		plane, ok := surfaceAt(center)
		if !ok {
			continue
		}
		normal := plane.Normal
		length := normal.Len()
		if length < constraint.Epsilon || math.IsNaN(length) {
			continue
		}
		normal = normal.Mul(1.0 / length)

		distance := plane.SignedDistance(center) / length
		separation := distance - radius
		if separation > margin {
			continue
		}

		pointA := center.Sub(normal.Mul(distance))
		pointB := center.Sub(normal.Mul(radius))
		if s.record(a, -1, b, j, pointA, pointB, normal, separation) {
			fresh++
		}
	}

	return fresh
}

// record refreshes the collision record of a sphere pair, creating it on its
// first detection in the update. It returns true for a new record.
func (s *System) record(a *actor.RigidBody, sphereA int, b *actor.RigidBody, sphereB int, pointA, pointB, normal mgl64.Vec3, separation float64) bool {
	key := contactKey{BodyA: a.Handle, SphereA: sphereA, BodyB: b.Handle, SphereB: sphereB}

	contact, known := s.contacts[key]
	if !known {
		contact = constraint.NewContactConstraint(a, b, sphereA, sphereB)
	}
	contact.SetGeometry(pointA, pointB, normal, separation)
	if !known {
		// the restitution target uses the approach velocity at first detection
		contact.Prepare(s.config.RestitutionThreshold)
		s.contacts[key] = contact
	}

	s.active = append(s.active, activeContact{key: key, contact: contact})

	return !known
}

// solveContacts runs one pass of sequential impulses and positional
// relaxation over the active contacts. It returns true when a correction
// was applied.
func (s *System) solveContacts(dt float64) bool {
	corrected := false
	for _, ac := range s.active {
		applied := ac.contact.SolveVelocity()
		correction := ac.contact.SolvePosition(dt, applied)

		if math.Abs(applied) > solverTolerance || correction > solverTolerance {
			corrected = true
		}
	}

	return corrected
}
