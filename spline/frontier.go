package spline

import "fmt"

// Frontier returns the curve the calibrator prices instruments against while
// solving segment `solved`: segments before it are calibrated, segment `solved`
// uses the trial coefficients, and the trial segment's right-edge value is
// held flat beyond it. Left of x0 the stretch's own extrapolation applies.
func (s *Stretch) Frontier(solved int, trial []float64) (Curve, error) {
	if solved < 0 || solved >= len(s.segs) {
		return nil, fmt.Errorf("Frontier: %w: segment %d of %d", ErrInvalidArgument, solved, len(s.segs))
	}
	if len(trial) != s.segs[solved].Count() {
		return nil, fmt.Errorf("Frontier: %w: %d trial coefficients for %d functions", ErrInvalidArgument, len(trial), s.segs[solved].Count())
	}
	for i := 0; i < solved; i++ {
		if !s.segs[i].Calibrated() {
			return nil, fmt.Errorf("Frontier: segment %d: %w", i, ErrNotCalibrated)
		}
	}
	return &frontier{s: s, solved: solved, trial: trial}, nil
}

type frontier struct {
	s      *Stretch
	solved int
	trial  []float64
}

func (f *frontier) Domain() (float64, float64) {
	return f.s.knots[0], f.s.knots[f.solved+1]
}

func (f *frontier) Evaluate(x float64) (float64, error) { return f.Derivative(x, 0) }

func (f *frontier) Derivative(x float64, order int) (float64, error) {
	if !finite(x) || order < 0 {
		return 0, fmt.Errorf("frontier: %w: x=%v order=%d", ErrInvalidArgument, x, order)
	}
	seg := f.s.segs[f.solved]
	if x > seg.right {
		if order > 0 {
			return 0, nil
		}
		return seg.Response(f.trial, seg.right, 0)
	}
	if f.s.inside(x) < 0 {
		if f.solved > 0 {
			return f.s.Derivative(x, order)
		}
		return f.leftOfTrial(x, order)
	}
	i := f.s.Locate(x)
	if i == f.solved {
		return seg.Response(f.trial, x, order)
	}
	return f.s.segs[i].Derivative(x, order)
}

// leftOfTrial applies the stretch's extrapolation when the trial segment is
// also the first one, so it has no frozen coefficients to read.
func (f *frontier) leftOfTrial(x float64, order int) (float64, error) {
	seg := f.s.segs[0]
	switch f.s.extrap {
	case ExtrapolateFlat:
		if order > 0 {
			return 0, nil
		}
		return seg.Response(f.trial, seg.left, 0)
	case ExtrapolateSegment:
		return response(seg.ext, f.trial, x, order)
	default:
		lo, hi := f.Domain()
		return 0, fmt.Errorf("frontier: %w: %v outside [%v, %v]", ErrOutOfDomain, x, lo, hi)
	}
}
