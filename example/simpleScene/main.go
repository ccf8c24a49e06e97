package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/akmonengine/marble"
	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene holds the handles the simulation loop reports on
type Scene struct {
	System *marble.System
	Ground marble.Handle
	Ball   marble.Handle
	Cart   marble.Handle
	Wheel  marble.Handle
}

// SetupScene creates a ground plane, a bouncing ball and a two-body cart
// whose wheel is held by a position joint and an axle-aligned angular joint
func SetupScene(config marble.Config) (*Scene, error) {
	system, err := marble.NewSystem(config)
	if err != nil {
		return nil, err
	}
	system.SetLogger(marble.NewDefaultLogger("marble", config.Debug))

	scene := &Scene{System: system}

	var ok bool
	scene.Ground, ok = system.AddPlaneBody(actor.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0})
	if !ok {
		return nil, fmt.Errorf("ground rejected")
	}

	scene.Ball, ok = system.AddSpheresBody(1.0,
		[]actor.Sphere{{Radius: 0.5}},
		mgl64.Vec3{-5, 5, 0},
		marble.WithRestitution(0.8),
	)
	if !ok {
		return nil, fmt.Errorf("ball rejected")
	}

	// dumbbell chassis
	scene.Cart, ok = system.AddSpheresBody(4.0,
		[]actor.Sphere{
			{Center: mgl64.Vec3{-1, 0, 0}, Radius: 0.5},
			{Center: mgl64.Vec3{1, 0, 0}, Radius: 0.5},
		},
		mgl64.Vec3{3, 2, 0},
		marble.WithMomentum(mgl64.Vec3{-4, 0, 0}),
	)
	if !ok {
		return nil, fmt.Errorf("cart rejected")
	}

	scene.Wheel, ok = system.AddSpheresBody(1.0,
		[]actor.Sphere{{Radius: 0.6}},
		mgl64.Vec3{3, 2, 1.2},
		marble.WithFriction(0.8, 0.6),
	)
	if !ok {
		return nil, fmt.Errorf("wheel rejected")
	}

	if !system.AddNonCollidingPair(scene.Cart, scene.Wheel) {
		return nil, fmt.Errorf("cart/wheel pair rejected")
	}
	if !system.AddPositionConstraint(scene.Cart, mgl64.Vec3{0, 0, 1.2}, scene.Wheel, mgl64.Vec3{}) {
		return nil, fmt.Errorf("axle rejected")
	}
	if !system.AddAngularConstraint(scene.Cart, mgl64.Vec3{0, 0, 1}, scene.Wheel, mgl64.Vec3{0, 0, 1}, marble.WithConstraintSoftness(0.2)) {
		return nil, fmt.Errorf("axle alignment rejected")
	}

	return scene, nil
}

// RunScene steps the scene and prints the collision events and a dump of
// the bodies every second of simulated time
func RunScene(scene *Scene, steps int, dt float64) {
	system := scene.System

	for _, eventType := range []marble.EventType{marble.COLLISION_ENTER, marble.COLLISION_EXIT} {
		system.Subscribe(eventType, func(event marble.Event) {
			switch e := event.(type) {
			case marble.CollisionEnterEvent:
				fmt.Printf("t=%.3f %v #%d #%d\n", system.Time(), e.Type(), e.BodyA, e.BodyB)
			case marble.CollisionExitEvent:
				fmt.Printf("t=%.3f %v #%d #%d\n", system.Time(), e.Type(), e.BodyA, e.BodyB)
			}
		})
	}

	perSecond := int(1.0 / dt)
	for step := 1; step <= steps; step++ {
		system.Update(dt)

		if step%perSecond == 0 {
			fmt.Println(system.Dump())
		}
	}

	if err := system.CheckInvariants(); err != nil {
		fmt.Println("invariant violated:", err)
	}
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	steps := flag.Int("steps", 600, "number of updates")
	flag.Parse()

	config := marble.DefaultConfig()
	config.Gravity = mgl64.Vec3{0, -9.81, 0}
	if *configPath != "" {
		loaded, err := marble.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		config = loaded
	}

	scene, err := SetupScene(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	RunScene(scene, *steps, 1.0/60.0)
	fmt.Println(scene.System.Stats())
}
