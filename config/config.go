// Package config holds the solver, calibration, smoothing and logging
// parameters of a curvecal run. Values come from Default() and are
// overridden by a TOML file; there is no package-level active configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/meenmo/curvecal/basis"
	"github.com/meenmo/curvecal/internal/logging"
	"github.com/meenmo/curvecal/rootfind"
	"github.com/meenmo/curvecal/smooth"
	"github.com/meenmo/curvecal/spline"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the full run configuration.
type Config struct {
	Solver      Solver         `toml:"solver"`
	Calibration Calibration    `toml:"calibration"`
	Smoothing   Smoothing      `toml:"smoothing"`
	Logging     logging.Config `toml:"logging"`
}

// Solver configures the per-segment root search.
type Solver struct {
	// Method is a rootfind method name (brent, ridder, bisection, ...).
	Method string `toml:"method"`

	// RelativeFactor scales the starting residual into the convergence
	// tolerance; AbsoluteFloor bounds it from below.
	RelativeFactor float64 `toml:"relative_factor"`
	AbsoluteFloor  float64 `toml:"absolute_floor"`

	// MaxIterations caps each segment solve.
	MaxIterations int `toml:"max_iterations"`

	CheckVariate    bool    `toml:"check_variate"`
	VariateRelative float64 `toml:"variate_relative"`
	VariateAbsolute float64 `toml:"variate_absolute"`

	// InitialStep is the first bracket probe distance. Zero selects
	// max(|start|·1e-3, 1e-4).
	InitialStep   float64 `toml:"initial_step"`
	Expansion     float64 `toml:"expansion"`
	MaxExpansions int     `toml:"max_expansions"`
}

// Calibration configures the shape-preserving stretch.
type Calibration struct {
	Basis      string  `toml:"basis"`
	Degree     int     `toml:"degree"`
	Tension    float64 `toml:"tension"`
	Boundary   string  `toml:"boundary"`
	Continuity int     `toml:"continuity"`
	// Extrapolation is none, flat or segment.
	Extrapolation string `toml:"extrapolation"`

	// LeftValue is the curve value pinned at the anchor (1 for discount curves).
	LeftValue float64 `toml:"left_value"`

	// ContinuityTolerance is the relative tolerance of the post-calibration
	// continuity check.
	ContinuityTolerance float64 `toml:"continuity_tolerance"`
}

// Smoothing configures the post-processor.
type Smoothing struct {
	Enabled   bool    `toml:"enabled"`
	Metric    string  `toml:"metric"`
	Basis     string  `toml:"basis"`
	Degree    int     `toml:"degree"`
	Tension   float64 `toml:"tension"`
	Tolerance float64 `toml:"tolerance"`
}

// Default returns production defaults: Brent with relative 1e-10 / absolute
// 1e-13 convergence, a linear C0 discount stretch and zero-rate smoothing
// with cubic polynomials.
func Default() Config {
	conv := rootfind.DefaultConvergence()
	return Config{
		Solver: Solver{
			Method:          rootfind.Brent.String(),
			RelativeFactor:  conv.RelativeFactor,
			AbsoluteFloor:   conv.AbsoluteFloor,
			MaxIterations:   conv.MaxIterations,
			VariateRelative: conv.VariateRelative,
			VariateAbsolute: conv.VariateAbsolute,
			Expansion:       2,
			MaxExpansions:   50,
		},
		Calibration: Calibration{
			Basis:               basis.Polynomial.String(),
			Degree:              1,
			Boundary:            spline.Natural.String(),
			Continuity:          0,
			Extrapolation:       spline.ExtrapolateFlat.String(),
			LeftValue:           1,
			ContinuityTolerance: 1e-9,
		},
		Smoothing: Smoothing{
			Metric:    smooth.ZeroRate{}.Name(),
			Basis:     basis.Polynomial.String(),
			Degree:    3,
			Tolerance: 1e-10,
		},
		Logging: logging.Default(),
	}
}

// Load reads a TOML file over Default() and validates the result. Keys the
// schema does not know are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes TOML text over Default() and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()
	meta, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config.Parse: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config.Parse: %w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := c.Method(); err != nil {
		return fmt.Errorf("%w: solver: %v", ErrInvalidConfig, err)
	}
	if err := c.Convergence().Validate(); err != nil {
		return fmt.Errorf("%w: solver: %v", ErrInvalidConfig, err)
	}
	if c.Solver.InitialStep < 0 || (c.Solver.Expansion != 0 && !(c.Solver.Expansion > 1)) || c.Solver.MaxExpansions < 0 {
		return fmt.Errorf("%w: solver: bracket search step %v expansion %v max %d",
			ErrInvalidConfig, c.Solver.InitialStep, c.Solver.Expansion, c.Solver.MaxExpansions)
	}
	if _, err := c.Basis(); err != nil {
		return fmt.Errorf("%w: calibration: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Boundary(); err != nil {
		return fmt.Errorf("%w: calibration: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Extrapolation(); err != nil {
		return fmt.Errorf("%w: calibration: %v", ErrInvalidConfig, err)
	}
	if c.Calibration.Continuity < 0 {
		return fmt.Errorf("%w: calibration: continuity %d", ErrInvalidConfig, c.Calibration.Continuity)
	}
	if !finite(c.Calibration.LeftValue) {
		return fmt.Errorf("%w: calibration: left value %v", ErrInvalidConfig, c.Calibration.LeftValue)
	}
	if !(c.Calibration.ContinuityTolerance > 0) {
		return fmt.Errorf("%w: calibration: continuity tolerance %v", ErrInvalidConfig, c.Calibration.ContinuityTolerance)
	}
	if _, err := c.SmoothingMetric(); err != nil {
		return fmt.Errorf("%w: smoothing: %v", ErrInvalidConfig, err)
	}
	if _, err := c.SmoothingBasis(); err != nil {
		return fmt.Errorf("%w: smoothing: %v", ErrInvalidConfig, err)
	}
	if !(c.Smoothing.Tolerance >= 0) || math.IsInf(c.Smoothing.Tolerance, 0) {
		return fmt.Errorf("%w: smoothing: tolerance %v", ErrInvalidConfig, c.Smoothing.Tolerance)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Method returns the configured root-finding method.
func (c Config) Method() (rootfind.Method, error) { return rootfind.ParseMethod(c.Solver.Method) }

// Convergence returns the solver's convergence settings.
func (c Config) Convergence() rootfind.Convergence {
	return rootfind.Convergence{
		RelativeFactor:  c.Solver.RelativeFactor,
		AbsoluteFloor:   c.Solver.AbsoluteFloor,
		MaxIterations:   c.Solver.MaxIterations,
		CheckVariate:    c.Solver.CheckVariate,
		VariateRelative: c.Solver.VariateRelative,
		VariateAbsolute: c.Solver.VariateAbsolute,
	}
}

// Initialization returns the bracket search placement for a solve starting
// at start.
func (c Config) Initialization(start float64) rootfind.Initialization {
	init := rootfind.DefaultInitialization(start)
	if c.Solver.InitialStep > 0 {
		init.Step = c.Solver.InitialStep
	}
	if c.Solver.Expansion > 1 {
		init.Expansion = c.Solver.Expansion
	}
	if c.Solver.MaxExpansions > 0 {
		init.MaxExpansions = c.Solver.MaxExpansions
	}
	return init
}

// Basis returns the calibration basis set.
func (c Config) Basis() (basis.Set, error) {
	return basisSet(c.Calibration.Basis, c.Calibration.Degree, c.Calibration.Tension)
}

// Boundary returns the calibration boundary condition.
func (c Config) Boundary() (spline.Boundary, error) { return spline.ParseBoundary(c.Calibration.Boundary) }

// Extrapolation returns the calibration out-of-domain policy.
func (c Config) Extrapolation() (spline.Extrapolation, error) {
	return spline.ParseExtrapolation(c.Calibration.Extrapolation)
}

// SmoothingMetric returns the smoothing metric.
func (c Config) SmoothingMetric() (smooth.Metric, error) { return smooth.ParseMetric(c.Smoothing.Metric) }

// SmoothingBasis returns the smoothing basis set.
func (c Config) SmoothingBasis() (basis.Set, error) {
	return basisSet(c.Smoothing.Basis, c.Smoothing.Degree, c.Smoothing.Tension)
}

func basisSet(family string, degree int, tension float64) (basis.Set, error) {
	f, err := basis.ParseFamily(family)
	if err != nil {
		return basis.Set{}, err
	}
	return basis.New(f, degree, tension)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
