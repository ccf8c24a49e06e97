package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// Helper functions
func vec3Equal(a, b mgl64.Vec3, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) < tolerance &&
		math.Abs(a.Y()-b.Y()) < tolerance &&
		math.Abs(a.Z()-b.Z()) < tolerance
}

func floatEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestGeometryTypeString(t *testing.T) {
	tests := []struct {
		geometry GeometryType
		expected string
	}{
		{GeometrySpheres, "spheres"},
		{GeometryPlane, "plane"},
		{GeometryTerrain, "terrain"},
		{GeometryType(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.geometry.String(); got != tt.expected {
			t.Errorf("GeometryType(%d).String() = %q, want %q", tt.geometry, got, tt.expected)
		}
	}
}

func TestComputeMassPropertiesSingleSphere(t *testing.T) {
	tests := []struct {
		name      string
		sphere    Sphere
		mass      float64
		expectedI float64
	}{
		{"unit sphere", Sphere{Radius: 1.0}, 5.0, (2.0 / 5.0) * 5.0},
		{"sphere radius 2", Sphere{Radius: 2.0}, 10.0, (2.0 / 5.0) * 10.0 * 4.0},
		{"offset small sphere", Sphere{Center: mgl64.Vec3{3, -1, 2}, Radius: 0.5}, 1.0, (2.0 / 5.0) * 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			com, inertia := ComputeMassProperties([]Sphere{tt.sphere}, tt.mass)

			if !vec3Equal(com, tt.sphere.Center, 1e-12) {
				t.Errorf("centre of mass = %v, want %v", com, tt.sphere.Center)
			}
			for i := 0; i < 3; i++ {
				if !floatEqual(inertia[i], tt.expectedI, 1e-9) {
					t.Errorf("inertia[%d] = %v, want %v", i, inertia[i], tt.expectedI)
				}
			}
		})
	}
}

func TestComputeMassPropertiesDumbbell(t *testing.T) {
	spheres := []Sphere{
		{Center: mgl64.Vec3{-1, 0, 0}, Radius: 0.5},
		{Center: mgl64.Vec3{1, 0, 0}, Radius: 0.5},
	}

	com, inertia := ComputeMassProperties(spheres, 2.0)

	if !vec3Equal(com, mgl64.Vec3{}, 1e-12) {
		t.Errorf("centre of mass = %v, want origin", com)
	}

	// each sphere: m = 1, own = 2/5 * 1 * 0.25 = 0.1, offset term = 1 on y and z
	expected := mgl64.Vec3{0.2, 2.2, 2.2}
	if !vec3Equal(inertia, expected, 1e-9) {
		t.Errorf("inertia = %v, want %v", inertia, expected)
	}
}

func TestComputeMassPropertiesWeightsByVolume(t *testing.T) {
	spheres := []Sphere{
		{Center: mgl64.Vec3{0, 0, 0}, Radius: 2},
		{Center: mgl64.Vec3{9, 0, 0}, Radius: 1},
	}

	com, _ := ComputeMassProperties(spheres, 1.0)

	// volumes 8 and 1
	if !vec3Equal(com, mgl64.Vec3{1, 0, 0}, 1e-12) {
		t.Errorf("centre of mass = %v, want (1, 0, 0)", com)
	}
}

func TestBoundingRadius(t *testing.T) {
	spheres := []Sphere{
		{Center: mgl64.Vec3{0, 0, 0}, Radius: 1},
		{Center: mgl64.Vec3{0, 3, 4}, Radius: 0.5},
	}

	if got := BoundingRadius(spheres); !floatEqual(got, 5.5, 1e-12) {
		t.Errorf("BoundingRadius() = %v, want 5.5", got)
	}
	if got := BoundingRadius(nil); got != 0 {
		t.Errorf("BoundingRadius(nil) = %v, want 0", got)
	}
}

func TestPlaneSignedDistance(t *testing.T) {
	plane := NewPlane(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 3, 0})

	if !vec3Equal(plane.Normal, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Errorf("normal = %v, want (0, 1, 0)", plane.Normal)
	}
	if !floatEqual(plane.Distance, -3, 1e-12) {
		t.Errorf("distance = %v, want -3", plane.Distance)
	}

	tests := []struct {
		point    mgl64.Vec3
		expected float64
	}{
		{mgl64.Vec3{0, 3, 0}, 0},
		{mgl64.Vec3{5, 4, -2}, 1},
		{mgl64.Vec3{0, 0, 0}, -3},
	}
	for _, tt := range tests {
		if got := plane.SignedDistance(tt.point); !floatEqual(got, tt.expected, 1e-12) {
			t.Errorf("SignedDistance(%v) = %v, want %v", tt.point, got, tt.expected)
		}
	}
}

func TestHeightFuncSurfaceAt(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		flat := HeightFunc(func(x, z float64) float64 { return 2 })

		plane, ok := flat.SurfaceAt(mgl64.Vec3{10, 7, -3})
		if !ok {
			t.Fatal("flat terrain should have a surface")
		}
		if !vec3Equal(plane.Normal, mgl64.Vec3{0, 1, 0}, 1e-12) {
			t.Errorf("normal = %v, want (0, 1, 0)", plane.Normal)
		}
		if !floatEqual(plane.SignedDistance(mgl64.Vec3{10, 7, -3}), 5, 1e-12) {
			t.Errorf("distance above ground = %v, want 5", plane.SignedDistance(mgl64.Vec3{10, 7, -3}))
		}
	})

	t.Run("slope", func(t *testing.T) {
		// y = x, a 45° slope
		slope := HeightFunc(func(x, z float64) float64 { return x })

		plane, ok := slope.SurfaceAt(mgl64.Vec3{1, 3, 0})
		if !ok {
			t.Fatal("slope should have a surface")
		}
		expected := mgl64.Vec3{-1, 1, 0}.Normalize()
		if !vec3Equal(plane.Normal, expected, 1e-6) {
			t.Errorf("normal = %v, want %v", plane.Normal, expected)
		}
		// the point (1, 3) is 2 above the ground along y, sqrt(2) along the normal
		if !floatEqual(plane.SignedDistance(mgl64.Vec3{1, 3, 0}), math.Sqrt2, 1e-6) {
			t.Errorf("distance = %v, want %v", plane.SignedDistance(mgl64.Vec3{1, 3, 0}), math.Sqrt2)
		}
	})

	t.Run("hole", func(t *testing.T) {
		hole := HeightFunc(func(x, z float64) float64 { return math.NaN() })

		if _, ok := hole.SurfaceAt(mgl64.Vec3{}); ok {
			t.Error("NaN height should report no surface")
		}
	})
}

func TestTransformRoundTrip(t *testing.T) {
	transform := NewTransform()
	transform.Position = mgl64.Vec3{1, 2, 3}
	transform.SetRotation(mgl64.QuatRotate(0.7, mgl64.Vec3{1, 1, 0}.Normalize()))

	local := mgl64.Vec3{0.3, -2, 5}
	world := transform.ToWorld(local)
	if !vec3Equal(transform.ToLocal(world), local, 1e-12) {
		t.Errorf("ToLocal(ToWorld(p)) = %v, want %v", transform.ToLocal(world), local)
	}

	if !floatEqual(transform.Rotation.Len(), 1, 1e-12) {
		t.Error("SetRotation should normalize")
	}
}
