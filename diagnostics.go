package marble

import (
	"fmt"
	"strings"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Instance is the render-facing state of one internal sphere
type Instance struct {
	BodyID      uuid.UUID
	Body        Handle
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Radius      float64
}

// AppendInstances appends one instance per internal sphere of every spheres
// body, in handle order, and returns the extended slice
func (s *System) AppendInstances(dst []Instance) []Instance {
	for h, body := range s.bodies {
		for i := body.First; i < body.Last; i++ {
			dst = append(dst, Instance{
				BodyID:      body.ID,
				Body:        Handle(h),
				Position:    body.Transform.ToWorld(s.spheres[i].Center),
				Orientation: body.Transform.Rotation,
				Radius:      s.spheres[i].Radius,
			})
		}
	}

	return dst
}

// Stats sums the state of the movable bodies. Angular momentum is taken
// about the world origin.
type Stats struct {
	Bodies          int
	Time            float64
	Iterations      int
	Contacts        int
	KineticEnergy   float64
	LinearMomentum  mgl64.Vec3
	AngularMomentum mgl64.Vec3
}

func (s *System) Stats() Stats {
	stats := Stats{
		Bodies:     len(s.bodies),
		Time:       s.time,
		Iterations: s.iterations,
		Contacts:   len(s.contacts),
	}

	for _, body := range s.bodies {
		stats.KineticEnergy += body.KineticEnergy()
		stats.LinearMomentum = stats.LinearMomentum.Add(body.LinearMomentum())
		stats.AngularMomentum = stats.AngularMomentum.Add(body.AngularMomentum())
	}

	return stats
}

func formatVec3(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v[0], v[1], v[2])
}

func (st Stats) String() string {
	return fmt.Sprintf("bodies=%d time=%.4fs iterations=%d contacts=%d energy=%.6fJ momentum=%s angular=%s",
		st.Bodies, st.Time, st.Iterations, st.Contacts, st.KineticEnergy,
		formatVec3(st.LinearMomentum), formatVec3(st.AngularMomentum))
}

// Dump returns the statistics followed by one line per body
func (s *System) Dump() string {
	var b strings.Builder

	b.WriteString(s.Stats().String())
	b.WriteByte('\n')

	for h, body := range s.bodies {
		fmt.Fprintf(&b, "  #%d %s %s", h, body.ID, body.Geometry)
		switch body.Geometry {
		case actor.GeometrySpheres:
			fmt.Fprintf(&b, " spheres=%d mass=%.4g pos=%s vel=%s ang=%s",
				body.Last-body.First, body.GetMass(),
				formatVec3(body.Transform.Position), formatVec3(body.Velocity), formatVec3(body.AngularVelocity))
		case actor.GeometryPlane:
			fmt.Fprintf(&b, " normal=%s d=%.4f", formatVec3(body.Plane.Normal), body.Plane.Distance)
		}
		b.WriteByte('\n')
	}

	return b.String()
}
