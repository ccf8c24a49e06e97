// Package constraint holds the solver rows: contacts produced by the narrow
// phase and the user joints (position and angular).
//
// Every row works on the tentative pose of its bodies. Positional errors are
// corrected by displacing that pose (split by generalized inverse mass), and
// velocities are corrected by equal and opposite impulses, so linear and
// angular momentum are preserved by every row.
package constraint

import (
	"math"

	"github.com/akmonengine/marble/actor"
)

// Epsilon floors every division performed by the solver rows
const Epsilon = 1e-10

// Constraint is a joint evaluated once per solver iteration. Solve returns
// true when a correction was applied.
type Constraint interface {
	Solve(dt float64) bool
}

func ComputeRestitution(matA, matB actor.Material) float64 {
	// If one bounces, it bounces
	return math.Max(matA.Restitution, matB.Restitution)
}

func ComputeStaticFriction(matA, matB actor.Material) float64 {
	// Geometric mean
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

func ComputeSoftness(matA, matB actor.Material) float64 {
	return clampSoftness(math.Max(matA.Softness, matB.Softness))
}

// clampSoftness keeps softness in [0, 1) so some correction always happens
func clampSoftness(softness float64) float64 {
	if math.IsNaN(softness) || softness < 0 {
		return 0
	}

	return math.Min(softness, 0.99)
}
