package marble

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	BroadPhaseTree = "tree"
	BroadPhaseGrid = "grid"
)

// Config holds the tunables of a System. The zero value is not usable, start
// from DefaultConfig.
type Config struct {
	// Iterations is the maximum number of predict/collide/solve passes per update
	Iterations int `yaml:"iterations"`
	// Gravity acceleration (m/s²) applied to every movable body, on top of the force hook
	Gravity mgl64.Vec3 `yaml:"gravity"`

	// BroadPhase is either "tree" or "grid"
	BroadPhase string  `yaml:"broad_phase"`
	CellSize   float64 `yaml:"cell_size"`
	Buckets    int     `yaml:"buckets"`
	// FatMargin enlarges the tree boxes so slow bodies do not move their leaf every update
	FatMargin float64 `yaml:"fat_margin"`

	// ContactMargin is the separation under which two surfaces are in contact
	ContactMargin float64 `yaml:"contact_margin"`
	// RestitutionThreshold is the approach speed under which contacts do not bounce
	RestitutionThreshold float64 `yaml:"restitution_threshold"`

	// Debug checks the broad phase invariants after every update and panics on failure
	Debug bool `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:           8,
		BroadPhase:           BroadPhaseTree,
		CellSize:             4,
		Buckets:              1024,
		FatMargin:            0.1,
		ContactMargin:        1e-3,
		RestitutionThreshold: 0.5,
	}
}

// LoadConfig reads a YAML document over DefaultConfig. Missing fields keep
// their default value, an empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig()

	if err := yaml.NewDecoder(r).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

func (c Config) Validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Iterations)
	}

	switch c.BroadPhase {
	case BroadPhaseTree:
	case BroadPhaseGrid:
		if !(c.CellSize > 0) || math.IsInf(c.CellSize, 1) {
			return fmt.Errorf("cell_size must be positive, got %v", c.CellSize)
		}
		if c.Buckets < 1 {
			return fmt.Errorf("buckets must be at least 1, got %d", c.Buckets)
		}
	default:
		return fmt.Errorf("unknown broad_phase %q", c.BroadPhase)
	}

	for name, v := range map[string]float64{
		"fat_margin":            c.FatMargin,
		"contact_margin":        c.ContactMargin,
		"restitution_threshold": c.RestitutionThreshold,
	} {
		if !(v >= 0) || math.IsInf(v, 1) {
			return fmt.Errorf("%s must be a finite non-negative number, got %v", name, v)
		}
	}

	for i := 0; i < 3; i++ {
		if math.IsNaN(c.Gravity[i]) || math.IsInf(c.Gravity[i], 0) {
			return fmt.Errorf("gravity must be finite, got %v", c.Gravity)
		}
	}

	return nil
}
