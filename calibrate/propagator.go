package calibrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/curvecal/spline"
)

// propagator accumulates quote sensitivities in lock-step with the bootstrap.
//
// Write p for the segment parameters (right-edge values) and q for the
// quotes. After segment i freezes it records
//
//	coef[i] = ∂a_i/∂p   (k_i × n; columns beyond i are zero)
//	row i of quote = ∂p_i/∂q, from m_i(p(q)) = q_i:
//	  ∂p_i/∂q_k = (δ_ik - Σ_{j<i} ∂m_i/∂p_j · ∂p_j/∂q_k) / ∂m_i/∂p_i
type propagator struct {
	stretch *spline.Stretch
	n       int
	coef    []*mat.Dense
	quote   *mat.Dense
	err     error
}

func newPropagator(s *spline.Stretch, n int) *propagator {
	return &propagator{
		stretch: s,
		n:       n,
		coef:    make([]*mat.Dense, 0, n),
		quote:   mat.NewDense(n, n, nil),
	}
}

// extend records segment i. It never fails calibration: a missing partial
// marks the Jacobian unavailable and stops further accumulation.
func (p *propagator) extend(i int, rows *bootstrap, coef []float64, b Binding) {
	if p.err != nil {
		return
	}
	if err := p.segmentSensitivity(i, rows); err != nil {
		p.err = fmt.Errorf("%w: segment %d: %v", ErrJacobianUnavailable, i, err)
		return
	}
	if err := p.quoteRow(i, coef, b); err != nil {
		p.err = fmt.Errorf("%w: segment %d (%s): %v", ErrJacobianUnavailable, i, b.Instrument.Name(), err)
	}
}

// segmentSensitivity solves column j of ∂a_i/∂p against the segment system:
// inherited rows carry the previous segment's edge derivatives, the free
// row carries δ_ij and every other row is zero.
func (p *propagator) segmentSensitivity(i int, rows *bootstrap) error {
	k := len(rows.locs)
	a := mat.NewDense(k, p.n, nil)

	var edge [][]float64
	if rows.inherited > 0 {
		prev := p.stretch.Segment(i - 1)
		edge = make([][]float64, rows.inherited)
		for r := 0; r < rows.inherited; r++ {
			row, err := prev.BasisResponse(rows.locs[r].Ordinate, rows.locs[r].Order)
			if err != nil {
				return err
			}
			edge[r] = row
		}
	}

	rhs := make([]float64, k)
	for j := 0; j <= i; j++ {
		for r := range rhs {
			rhs[r] = 0
		}
		for r := 0; r < rows.inherited; r++ {
			rhs[r] = floats.Dot(edge[r], mat.Col(nil, j, p.coef[i-1]))
		}
		if j == i {
			rhs[rows.free] = 1
		}
		col, err := rows.system.Solve(rhs)
		if err != nil {
			return err
		}
		a.SetCol(j, col)
	}
	p.coef = append(p.coef, a)
	return nil
}

// quoteRow maps the instrument's response nodes through the basis into
// ∂m_i/∂p_j and solves for row i of ∂p/∂q.
func (p *propagator) quoteRow(i int, coef []float64, b Binding) error {
	sens, ok := b.Instrument.(Sensitive)
	if !ok {
		return fmt.Errorf("instrument does not expose response sensitivities")
	}
	curve, err := p.stretch.Frontier(i, coef)
	if err != nil {
		return err
	}
	nodes, err := sens.ResponseSensitivity(curve, b.Measure)
	if err != nil {
		return err
	}

	right := p.stretch.Segment(i).Right()
	g := make([]float64, i+1)
	for _, nd := range nodes {
		if !finite(nd.Weight) {
			return fmt.Errorf("non-finite weight at %v order %d", nd.Ordinate, nd.Order)
		}
		if nd.Ordinate > right {
			// Beyond the frontier the trial value is held flat.
			if nd.Order == 0 {
				g[i] += nd.Weight
			}
			continue
		}
		seg, row, err := p.stretch.BasisRow(nd.Ordinate, nd.Order)
		if err != nil {
			return err
		}
		for j := 0; j <= seg; j++ {
			g[j] += nd.Weight * floats.Dot(row, mat.Col(nil, j, p.coef[seg]))
		}
	}
	for j, v := range g {
		if !finite(v) {
			return fmt.Errorf("non-finite ∂m/∂p_%d", j)
		}
	}
	if g[i] == 0 {
		return fmt.Errorf("∂m/∂p_%d vanishes at the root", i)
	}

	for k := 0; k <= i; k++ {
		v := 0.0
		if k == i {
			v = 1
		}
		for j := k; j < i; j++ {
			v -= g[j] * p.quote.At(j, k)
		}
		p.quote.Set(i, k, v/g[i])
	}
	return nil
}

// row returns ∂(order-th derivative at x)/∂q.
func (p *propagator) row(x float64, order int) ([]float64, error) {
	seg, basisRow, err := p.stretch.BasisRow(x, order)
	if err != nil {
		return nil, err
	}
	var dp, dq mat.VecDense
	dp.MulVec(p.coef[seg].T(), mat.NewVecDense(len(basisRow), basisRow))
	dq.MulVec(p.quote.T(), &dp)
	return mat.Col(nil, 0, &dq), nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
