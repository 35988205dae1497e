// Package basis provides the scalar basis functions spline segments are built
// from: polynomial monomials and the hyperbolic/rational tension hats.
//
// Every function is defined on a segment [left, right] and evaluated through the
// local coordinate u = (x-left)/(right-left). Raw functions reject ordinates
// outside the segment; extended functions evaluate the same closed form anywhere
// on the real line.
package basis

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidArgument is returned for malformed inputs: non-finite ordinates,
// negative derivative orders, ordinates outside a raw function's segment, or
// degenerate basis parameters.
var ErrInvalidArgument = errors.New("basis: invalid argument")

// Family identifies a basis function family.
type Family int

const (
	// Polynomial uses the monomials 1, u, ..., u^degree.
	Polynomial Family = iota
	// HyperbolicTension uses 1, u and the hats sinh(τ(1-u))/sinh(τ), sinh(τu)/sinh(τ).
	HyperbolicTension
	// RationalTension uses 1, u and the hats (1-u)³/(1+τu), u³/(1+τ(1-u)).
	RationalTension
)

func (f Family) String() string {
	switch f {
	case Polynomial:
		return "polynomial"
	case HyperbolicTension:
		return "hyperbolic"
	case RationalTension:
		return "rational"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily maps a configuration string onto a Family.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "polynomial", "poly":
		return Polynomial, nil
	case "hyperbolic", "hyperbolic-tension", "tension":
		return HyperbolicTension, nil
	case "rational", "rational-tension":
		return RationalTension, nil
	default:
		return 0, fmt.Errorf("%w: unknown basis family %q", ErrInvalidArgument, s)
	}
}

// tensionCount is the number of functions in every tension family.
const tensionCount = 4

// Set is an immutable descriptor of a basis family. It carries no per-segment
// state; Functions builds fresh hats for each segment.
type Set struct {
	family  Family
	degree  int
	tension float64
}

// New validates and returns a basis set. degree is used by Polynomial only and
// tension by the tension families only.
func New(family Family, degree int, tension float64) (Set, error) {
	switch family {
	case Polynomial:
		return NewPolynomial(degree)
	case HyperbolicTension:
		return NewHyperbolicTension(tension)
	case RationalTension:
		return NewRationalTension(tension)
	default:
		return Set{}, fmt.Errorf("%w: unknown basis family %d", ErrInvalidArgument, int(family))
	}
}

// NewPolynomial returns the monomial set of the given degree (at least 1).
func NewPolynomial(degree int) (Set, error) {
	if degree < 1 {
		return Set{}, fmt.Errorf("%w: polynomial degree %d < 1", ErrInvalidArgument, degree)
	}
	return Set{family: Polynomial, degree: degree}, nil
}

// NewHyperbolicTension returns the hyperbolic tension set.
func NewHyperbolicTension(tension float64) (Set, error) {
	if err := checkTension(tension); err != nil {
		return Set{}, err
	}
	return Set{family: HyperbolicTension, degree: tensionCount - 1, tension: tension}, nil
}

// NewRationalTension returns the rational tension set.
func NewRationalTension(tension float64) (Set, error) {
	if err := checkTension(tension); err != nil {
		return Set{}, err
	}
	return Set{family: RationalTension, degree: tensionCount - 1, tension: tension}, nil
}

func checkTension(tension float64) error {
	if math.IsNaN(tension) || math.IsInf(tension, 0) || tension <= 0 {
		return fmt.Errorf("%w: tension %v must be finite and positive", ErrInvalidArgument, tension)
	}
	// sinh overflows past ~710; the hats are numerically linear long before that.
	if tension > 500 {
		return fmt.Errorf("%w: tension %v too large", ErrInvalidArgument, tension)
	}
	return nil
}

// Family returns the set's family.
func (s Set) Family() Family { return s.family }

// Tension returns the shape parameter (zero for polynomials).
func (s Set) Tension() float64 { return s.tension }

// Degree is Count()-1: the highest continuity order a bootstrap stretch can
// carry is Degree()-1.
func (s Set) Degree() int { return s.degree }

// Count returns the number of functions per segment.
func (s Set) Count() int { return s.degree + 1 }

// Name renders the set for logs and reports.
func (s Set) Name() string {
	switch s.family {
	case Polynomial:
		return fmt.Sprintf("polynomial(%d)", s.degree)
	default:
		return fmt.Sprintf("%s(τ=%g)", s.family, s.tension)
	}
}

// IsZero reports whether s is the zero Set (never constructed).
func (s Set) IsZero() bool { return s.degree == 0 }

// Functions builds the raw functions over [left, right].
func (s Set) Functions(left, right float64) ([]Function, error) {
	return s.build(left, right, false)
}

// Extended builds the extrapolating variants over [left, right].
func (s Set) Extended(left, right float64) ([]Function, error) {
	return s.build(left, right, true)
}

func (s Set) build(left, right float64, extended bool) ([]Function, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("%w: uninitialised basis set", ErrInvalidArgument)
	}
	if !finite(left) || !finite(right) || right <= left {
		return nil, fmt.Errorf("%w: segment [%v, %v]", ErrInvalidArgument, left, right)
	}

	var shapes []shape
	switch s.family {
	case Polynomial:
		shapes = make([]shape, 0, s.degree+1)
		for p := 0; p <= s.degree; p++ {
			shapes = append(shapes, monomial(p))
		}
	case HyperbolicTension:
		trailing := newHyperbolic(s.tension)
		shapes = []shape{monomial(0), monomial(1), reflected{trailing}, trailing}
	case RationalTension:
		trailing := newRational(s.tension)
		shapes = []shape{monomial(0), monomial(1), reflected{trailing}, trailing}
	}

	out := make([]Function, len(shapes))
	for i, sh := range shapes {
		out[i] = newHat(sh, left, right, extended)
	}
	return out, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
