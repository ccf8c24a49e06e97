package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// GeometryType tags the collision geometry of a rigid body
type GeometryType int

const (
	// GeometrySpheres bodies are a union of internal spheres
	GeometrySpheres GeometryType = iota
	// GeometryPlane bodies are a static infinite half-space
	GeometryPlane
	// GeometryTerrain bodies sample an external height oracle
	GeometryTerrain
)

func (g GeometryType) String() string {
	switch g {
	case GeometrySpheres:
		return "spheres"
	case GeometryPlane:
		return "plane"
	case GeometryTerrain:
		return "terrain"
	}

	return "unknown"
}

// Sphere is one internal sphere of a Spheres body, expressed in body space
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Plane represents an infinite plane collision shape
// The plane is defined by the equation: Normal · p + Distance = 0
// where Normal is the plane's normal vector (must be normalized)
// and Distance is the signed distance from the origin along the normal
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewPlane builds the plane through point with the given normal
func NewPlane(normal, point mgl64.Vec3) Plane {
	n := normal.Normalize()

	return Plane{Normal: n, Distance: -n.Dot(point)}
}

// SignedDistance is positive on the side the normal points to
func (p Plane) SignedDistance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) + p.Distance
}

// Terrain is the ground oracle consumed for terrain bodies. SurfaceAt returns
// the local tangent plane of the ground closest to point, or false when there
// is no ground to collide with near point.
type Terrain interface {
	SurfaceAt(point mgl64.Vec3) (Plane, bool)
}

// HeightFunc adapts a y = f(x, z) height sampler to the Terrain interface
type HeightFunc func(x, z float64) float64

const heightFuncStep = 1e-3

func (f HeightFunc) SurfaceAt(point mgl64.Vec3) (Plane, bool) {
	x, z := point.X(), point.Z()
	h := f(x, z)
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return Plane{}, false
	}

	dx := (f(x+heightFuncStep, z) - f(x-heightFuncStep, z)) / (2 * heightFuncStep)
	dz := (f(x, z+heightFuncStep) - f(x, z-heightFuncStep)) / (2 * heightFuncStep)

	return NewPlane(mgl64.Vec3{-dx, 1, -dz}, mgl64.Vec3{x, h, z}), true
}

// ComputeMassProperties returns the centre of mass of the spheres (weighted
// by volume) and the diagonal of the inertia tensor about it for the given
// total mass. Products of inertia are dropped.
func ComputeMassProperties(spheres []Sphere, mass float64) (mgl64.Vec3, mgl64.Vec3) {
	var totalVolume float64
	var com mgl64.Vec3
	for _, s := range spheres {
		v := s.Radius * s.Radius * s.Radius
		totalVolume += v
		com = com.Add(s.Center.Mul(v))
	}
	if totalVolume <= 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}
	}
	com = com.Mul(1.0 / totalVolume)

	var inertia mgl64.Vec3
	for _, s := range spheres {
		m := mass * s.Radius * s.Radius * s.Radius / totalVolume
		// I = (2/5) * m * r² for a solid sphere, plus the parallel axis term
		own := (2.0 / 5.0) * m * s.Radius * s.Radius
		d := s.Center.Sub(com)
		inertia[0] += own + m*(d[1]*d[1]+d[2]*d[2])
		inertia[1] += own + m*(d[0]*d[0]+d[2]*d[2])
		inertia[2] += own + m*(d[0]*d[0]+d[1]*d[1])
	}

	return com, inertia
}

// BoundingRadius returns the radius of the smallest origin-centred sphere
// enclosing all spheres
func BoundingRadius(spheres []Sphere) float64 {
	var radius float64
	for _, s := range spheres {
		radius = math.Max(radius, s.Center.Len()+s.Radius)
	}

	return radius
}
