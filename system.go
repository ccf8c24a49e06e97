package marble

import (
	"fmt"
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// Handle addresses a body of a System. Handles are dense, start at 0 and are
// never reused.
type Handle int

const InvalidHandle Handle = -1

// ForceFunc is called at the beginning of every update, before the
// accumulated forces are folded into the velocities. It typically calls
// AddForce and AddTorque.
type ForceFunc func(s *System, dt float64)

type handlePair struct {
	A, B Handle
}

func makeHandlePair(a, b Handle) handlePair {
	if b < a {
		a, b = b, a
	}

	return handlePair{A: a, B: b}
}

// System owns the bodies, their internal spheres and the joints, and advances
// them with Update. It is not safe for concurrent use.
type System struct {
	config Config
	logger Logger

	bodies []*actor.RigidBody
	// internal spheres of every spheres body, body space relative to the centre of mass
	spheres      []actor.Sphere
	nonColliding map[handlePair]struct{}
	joints       []constraint.Constraint

	broadPhase broadPhase
	forceFunc  ForceFunc
	time       float64

	events Events

	// state of the update in progress
	worldCenters []mgl64.Vec3
	contacts     map[contactKey]*constraint.ContactConstraint
	active       []activeContact
	handles      []int
	bounds       []BoundingSphere
	statics      []int
	iterations   int
}

// NewSystem returns an empty system. The config is validated first.
func NewSystem(config Config) (*System, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &System{
		config:       config,
		logger:       NewNopLogger(),
		nonColliding: make(map[handlePair]struct{}),
		broadPhase:   newBroadPhase(config),
		events:       NewEvents(),
		contacts:     make(map[contactKey]*constraint.ContactConstraint),
	}, nil
}

func (s *System) Config() Config {
	return s.config
}

// SetLogger replaces the logger, nil restores the no-op logger
func (s *System) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNopLogger()
	}
	s.logger = logger
}

// SetForceFunc installs the external force hook, nil removes it
func (s *System) SetForceFunc(f ForceFunc) {
	s.forceFunc = f
}

// Subscribe adds a listener for the contact events emitted after each update
func (s *System) Subscribe(eventType EventType, listener EventListener) {
	s.events.Subscribe(eventType, listener)
}

func (s *System) Len() int {
	return len(s.bodies)
}

// Time is the simulated time elapsed over all updates
func (s *System) Time() float64 {
	return s.time
}

func (s *System) Body(h Handle) (*actor.RigidBody, bool) {
	if !s.valid(h) {
		return nil, false
	}

	return s.bodies[h], true
}

// Spheres returns the internal spheres of a body, relative to its centre of mass
func (s *System) Spheres(h Handle) []actor.Sphere {
	if !s.valid(h) {
		return nil
	}
	body := s.bodies[h]

	return s.spheres[body.First:body.Last]
}

func (s *System) valid(h Handle) bool {
	return h >= 0 && int(h) < len(s.bodies)
}

func (s *System) AddForce(h Handle, force mgl64.Vec3) bool {
	if !s.valid(h) {
		s.logger.Warnf("AddForce: unknown body %d", h)
		return false
	}
	s.bodies[h].AddForce(force)

	return true
}

func (s *System) AddTorque(h Handle, torque mgl64.Vec3) bool {
	if !s.valid(h) {
		s.logger.Warnf("AddTorque: unknown body %d", h)
		return false
	}
	s.bodies[h].AddTorque(torque)

	return true
}

// Update advances the system by dt seconds
func (s *System) Update(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		s.logger.Warnf("Update: invalid time step %v", dt)
		return
	}

	if s.forceFunc != nil {
		s.forceFunc(s, dt)
	}

	gravity := s.config.Gravity
	for _, body := range s.bodies {
		if body.Movable && gravity != (mgl64.Vec3{}) {
			body.AddForce(gravity.Mul(body.GetMass()))
		}
		body.ApplyForces(dt)
		body.Begin()
	}

	clear(s.contacts)
	s.iterations = 0
	for s.iterations < s.config.Iterations {
		s.iterations++

		s.predict(dt)
		fresh := s.detectCollisions(dt)
		corrected := s.solveContacts(dt)
		for _, joint := range s.joints {
			if joint.Solve(dt) {
				corrected = true
			}
		}

		if fresh == 0 && !corrected {
			break
		}
	}

	// commit: the final pose follows the solved velocities
	s.predict(dt)
	s.time += dt

	s.events.recordContacts(s.contacts)
	s.events.flush()

	if s.logger.DebugEnabled() {
		s.logger.Debugf("update t=%.4f iterations=%d contacts=%d", s.time, s.iterations, len(s.contacts))
	}

	if s.config.Debug {
		if err := s.CheckInvariants(); err != nil {
			panic(err)
		}
	}
}

// predict recomputes every tentative pose and the world centres of the internal spheres
func (s *System) predict(dt float64) {
	if cap(s.worldCenters) < len(s.spheres) {
		s.worldCenters = make([]mgl64.Vec3, len(s.spheres))
	}
	s.worldCenters = s.worldCenters[:len(s.spheres)]

	for _, body := range s.bodies {
		body.Predict(dt)
		for i := body.First; i < body.Last; i++ {
			s.worldCenters[i] = body.Transform.ToWorld(s.spheres[i].Center)
		}
	}
}

// CheckInvariants verifies the broad phase structure and the body states
func (s *System) CheckInvariants() error {
	if err := s.broadPhase.checkInvariants(); err != nil {
		return fmt.Errorf("broad phase: %w", err)
	}

	for h, body := range s.bodies {
		if body.Handle != h {
			return fmt.Errorf("body %d: handle %d", h, body.Handle)
		}
		if !body.IsFinite() {
			return fmt.Errorf("body %d: non-finite state", h)
		}
		if math.Abs(body.Transform.Rotation.Len()-1) > 1e-6 {
			return fmt.Errorf("body %d: orientation not normalized", h)
		}
		if body.InverseMass < 0 {
			return fmt.Errorf("body %d: negative inverse mass", h)
		}
		if body.Geometry != actor.GeometrySpheres && body.Movable {
			return fmt.Errorf("body %d: movable %s", h, body.Geometry)
		}
		if body.First < 0 || body.Last < body.First || body.Last > len(s.spheres) {
			return fmt.Errorf("body %d: sphere range [%d, %d) out of bounds", h, body.First, body.Last)
		}
	}

	return nil
}
