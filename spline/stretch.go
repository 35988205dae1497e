// Package spline holds multi-segment spline stretches: ordered segments over a
// strictly increasing set of knots, each carrying its own basis functions and
// (once calibrated) coefficients.
package spline

import (
	"fmt"
	"math"
	"sort"

	"github.com/meenmo/curvecal/basis"
)

// Boundary selects the extra constraints placed on the first segment.
type Boundary int

const (
	// Natural pins derivatives of order 2..c+1 to zero at the left edge.
	Natural Boundary = iota
	// Financial pins derivatives of order 1..c to zero at the left edge, which
	// for a discount curve means a flat initial forward.
	Financial
)

func (b Boundary) String() string {
	switch b {
	case Natural:
		return "natural"
	case Financial:
		return "financial"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// ParseBoundary maps a configuration string onto a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "natural", "":
		return Natural, nil
	case "financial":
		return Financial, nil
	default:
		return 0, fmt.Errorf("%w: unknown boundary %q", ErrInvalidArgument, s)
	}
}

// LeftOrders returns the derivative orders pinned to zero at the left edge of
// the first segment for continuity c.
func (b Boundary) LeftOrders(c int) []int {
	out := make([]int, 0, c)
	for i := 0; i < c; i++ {
		if b == Financial {
			out = append(out, i+1)
		} else {
			out = append(out, i+2)
		}
	}
	return out
}

// Extrapolation controls queries outside [x0, xn].
type Extrapolation int

const (
	// ExtrapolateNone fails with ErrOutOfDomain.
	ExtrapolateNone Extrapolation = iota
	// ExtrapolateFlat holds the edge value; all derivatives are zero.
	ExtrapolateFlat
	// ExtrapolateSegment continues the edge segment's closed form.
	ExtrapolateSegment
)

func (e Extrapolation) String() string {
	switch e {
	case ExtrapolateNone:
		return "none"
	case ExtrapolateFlat:
		return "flat"
	case ExtrapolateSegment:
		return "segment"
	default:
		return fmt.Sprintf("extrapolation(%d)", int(e))
	}
}

// ParseExtrapolation maps a configuration string onto an Extrapolation.
func ParseExtrapolation(s string) (Extrapolation, error) {
	switch s {
	case "none", "":
		return ExtrapolateNone, nil
	case "flat":
		return ExtrapolateFlat, nil
	case "segment":
		return ExtrapolateSegment, nil
	default:
		return 0, fmt.Errorf("%w: unknown extrapolation %q", ErrInvalidArgument, s)
	}
}

// Curve is the read-only view instruments and metrics evaluate against.
type Curve interface {
	Evaluate(x float64) (float64, error)
	Derivative(x float64, order int) (float64, error)
	Domain() (float64, float64)
}

// Knotted curves expose the ordinates they were built on.
type Knotted interface {
	Curve
	Knots() []float64
}

// Option configures a Stretch.
type Option func(*Stretch)

// WithExtrapolation sets the out-of-domain policy (default ExtrapolateNone).
func WithExtrapolation(e Extrapolation) Option {
	return func(s *Stretch) { s.extrap = e }
}

// Stretch is an ordered sequence of segments sharing knots.
type Stretch struct {
	knots      []float64
	segs       []*Segment
	boundary   Boundary
	continuity int
	extrap     Extrapolation
}

// New builds an uncalibrated stretch over knots. sets holds either one basis
// set shared by every segment or one set per segment.
func New(knots []float64, sets []basis.Set, boundary Boundary, continuity int, opts ...Option) (*Stretch, error) {
	if len(knots) < 2 {
		return nil, fmt.Errorf("spline.New: %w: got %d", ErrInsufficientKnots, len(knots))
	}
	for i, x := range knots {
		if !finite(x) {
			return nil, fmt.Errorf("spline.New: %w: knot %d is %v", ErrInvalidArgument, i, x)
		}
		if i > 0 && x <= knots[i-1] {
			return nil, fmt.Errorf("spline.New: %w: knots not strictly increasing at %d (%v <= %v)", ErrInvalidArgument, i, x, knots[i-1])
		}
	}
	n := len(knots) - 1
	if len(sets) != 1 && len(sets) != n {
		return nil, fmt.Errorf("spline.New: %w: %d basis sets for %d segments", ErrInvalidArgument, len(sets), n)
	}
	if continuity < 0 {
		return nil, fmt.Errorf("spline.New: %w: continuity %d", ErrInvalidArgument, continuity)
	}
	if boundary != Natural && boundary != Financial {
		return nil, fmt.Errorf("spline.New: %w: boundary %d", ErrInvalidArgument, int(boundary))
	}

	s := &Stretch{
		knots:      append([]float64(nil), knots...),
		segs:       make([]*Segment, n),
		boundary:   boundary,
		continuity: continuity,
	}
	for _, opt := range opts {
		opt(s)
	}

	for i := 0; i < n; i++ {
		set := sets[0]
		if len(sets) == n {
			set = sets[i]
		}
		if set.IsZero() {
			return nil, fmt.Errorf("spline.New: %w: segment %d has no basis set", ErrInvalidArgument, i)
		}
		if continuity > set.Degree()-1 {
			return nil, fmt.Errorf("spline.New: %w: continuity %d needs degree >= %d, %s has %d",
				ErrBasisOrderTooLow, continuity, continuity+1, set.Name(), set.Degree())
		}
		seg, err := NewSegment(knots[i], knots[i+1], set)
		if err != nil {
			return nil, fmt.Errorf("spline.New: segment %d: %w", i, err)
		}
		s.segs[i] = seg
	}
	return s, nil
}

// Clone returns a deep copy. Calibrating the copy leaves s untouched.
func (s *Stretch) Clone() *Stretch {
	out := &Stretch{
		knots:      append([]float64(nil), s.knots...),
		segs:       make([]*Segment, len(s.segs)),
		boundary:   s.boundary,
		continuity: s.continuity,
		extrap:     s.extrap,
	}
	for i, seg := range s.segs {
		// Basis functions are immutable, so copies share them.
		c := *seg
		c.coef = seg.Coefficients()
		out.segs[i] = &c
	}
	return out
}

// Knots returns a copy of the ordinates.
func (s *Stretch) Knots() []float64 { return append([]float64(nil), s.knots...) }

// Len returns the number of segments.
func (s *Stretch) Len() int { return len(s.segs) }

// Segment returns segment i.
func (s *Stretch) Segment(i int) *Segment { return s.segs[i] }

// Segments returns the segment slice. The segments themselves are shared.
func (s *Stretch) Segments() []*Segment { return append([]*Segment(nil), s.segs...) }

// Boundary returns the left boundary condition.
func (s *Stretch) Boundary() Boundary { return s.boundary }

// Continuity returns the continuity order c.
func (s *Stretch) Continuity() int { return s.continuity }

// Extrapolation returns the out-of-domain policy.
func (s *Stretch) Extrapolation() Extrapolation { return s.extrap }

// Domain returns [x0, xn].
func (s *Stretch) Domain() (float64, float64) { return s.knots[0], s.knots[len(s.knots)-1] }

// Calibrated reports whether every segment is frozen.
func (s *Stretch) Calibrated() bool {
	for _, seg := range s.segs {
		if !seg.Calibrated() {
			return false
		}
	}
	return true
}

// Locate returns the index of the segment containing x. Knot ordinates belong
// to the segment on their left, except x0. x must lie inside the domain.
func (s *Stretch) Locate(x float64) int {
	right := s.knots[1:]
	i := sort.Search(len(right), func(j int) bool { return right[j] >= x })
	if i >= len(s.segs) {
		i = len(s.segs) - 1
	}
	return i
}

// inside reports where x sits: -1 left of x0, +1 right of xn, 0 inside.
func (s *Stretch) inside(x float64) int {
	lo, hi := s.Domain()
	slack := 1e-12 * math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
	switch {
	case x < lo-slack:
		return -1
	case x > hi+slack:
		return 1
	}
	return 0
}

// Evaluate returns the stretch value at x.
func (s *Stretch) Evaluate(x float64) (float64, error) {
	return s.Derivative(x, 0)
}

// Derivative returns the order-th derivative at x.
func (s *Stretch) Derivative(x float64, order int) (float64, error) {
	if !finite(x) || order < 0 {
		return 0, fmt.Errorf("Stretch.Derivative: %w: x=%v order=%d", ErrInvalidArgument, x, order)
	}
	side := s.inside(x)
	if side == 0 {
		return s.segs[s.Locate(x)].Derivative(x, order)
	}

	edge, seg := s.knots[0], s.segs[0]
	if side > 0 {
		edge, seg = s.knots[len(s.knots)-1], s.segs[len(s.segs)-1]
	}
	switch s.extrap {
	case ExtrapolateFlat:
		if order > 0 {
			if !seg.Calibrated() {
				return 0, ErrNotCalibrated
			}
			return 0, nil
		}
		return seg.Derivative(edge, 0)
	case ExtrapolateSegment:
		return seg.extended(x, order)
	default:
		lo, hi := s.Domain()
		return 0, fmt.Errorf("Stretch.Derivative: %w: %v outside [%v, %v]", ErrOutOfDomain, x, lo, hi)
	}
}

// Integrate returns the integral of the stretch over [a, b].
func (s *Stretch) Integrate(a, b float64) (float64, error) {
	if !finite(a) || !finite(b) {
		return 0, fmt.Errorf("Stretch.Integrate: %w: [%v, %v]", ErrInvalidArgument, a, b)
	}
	if a == b {
		return 0, nil
	}
	if a > b {
		v, err := s.Integrate(b, a)
		return -v, err
	}

	lo, hi := s.Domain()
	total := 0.0
	if a < lo {
		v, err := s.integrateOutside(a, math.Min(b, lo), 0, lo)
		if err != nil {
			return 0, err
		}
		total += v
		a = lo
	}
	if b > hi {
		v, err := s.integrateOutside(math.Max(a, hi), b, len(s.segs)-1, hi)
		if err != nil {
			return 0, err
		}
		total += v
		b = hi
	}
	if a >= b {
		return total, nil
	}

	for i := s.Locate(a); i < len(s.segs); i++ {
		seg := s.segs[i]
		if seg.left >= b {
			break
		}
		v, err := seg.Integrate(math.Max(a, seg.left), math.Min(b, seg.right))
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (s *Stretch) integrateOutside(a, b float64, edge int, x float64) (float64, error) {
	seg := s.segs[edge]
	switch s.extrap {
	case ExtrapolateFlat:
		v, err := seg.Derivative(x, 0)
		return v * (b - a), err
	case ExtrapolateSegment:
		if !seg.Calibrated() {
			return 0, ErrNotCalibrated
		}
		sum := 0.0
		for i, fn := range seg.ext {
			v, err := fn.Integrate(a, b)
			if err != nil {
				return 0, err
			}
			sum += seg.coef[i] * v
		}
		return sum, nil
	default:
		lo, hi := s.Domain()
		return 0, fmt.Errorf("Stretch.Integrate: %w: [%v, %v] outside [%v, %v]", ErrOutOfDomain, a, b, lo, hi)
	}
}

// BasisRow expresses the order-th derivative at x as a linear functional of
// one segment's coefficients: it returns the segment index and the row.
// Extrapolated ordinates map onto the edge segment.
func (s *Stretch) BasisRow(x float64, order int) (int, []float64, error) {
	if !finite(x) || order < 0 {
		return 0, nil, fmt.Errorf("Stretch.BasisRow: %w: x=%v order=%d", ErrInvalidArgument, x, order)
	}
	side := s.inside(x)
	if side == 0 {
		i := s.Locate(x)
		row, err := s.segs[i].BasisResponse(x, order)
		return i, row, err
	}

	i, edge := 0, s.knots[0]
	if side > 0 {
		i, edge = len(s.segs)-1, s.knots[len(s.knots)-1]
	}
	seg := s.segs[i]
	switch s.extrap {
	case ExtrapolateFlat:
		if order > 0 {
			return i, make([]float64, seg.Count()), nil
		}
		row, err := seg.BasisResponse(edge, 0)
		return i, row, err
	case ExtrapolateSegment:
		row, err := seg.extendedRow(x, order)
		return i, row, err
	default:
		lo, hi := s.Domain()
		return 0, nil, fmt.Errorf("Stretch.BasisRow: %w: %v outside [%v, %v]", ErrOutOfDomain, x, lo, hi)
	}
}

// CheckContinuity verifies that adjacent segments agree in value and
// derivatives 0..c at every interior knot within tol (relative to the larger
// magnitude, floored at 1).
func (s *Stretch) CheckContinuity(tol float64) error {
	for i := 1; i < len(s.segs); i++ {
		x := s.knots[i]
		for order := 0; order <= s.continuity; order++ {
			l, err := s.segs[i-1].Derivative(x, order)
			if err != nil {
				return fmt.Errorf("CheckContinuity: knot %d: %w", i, err)
			}
			r, err := s.segs[i].Derivative(x, order)
			if err != nil {
				return fmt.Errorf("CheckContinuity: knot %d: %w", i, err)
			}
			scale := math.Max(1, math.Max(math.Abs(l), math.Abs(r)))
			if math.Abs(l-r) > tol*scale {
				return fmt.Errorf("CheckContinuity: %w: knot %d (x=%v) order %d: left %.12g right %.12g",
					ErrContinuityViolation, i, x, order, l, r)
			}
		}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
