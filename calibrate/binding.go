package calibrate

import (
	"fmt"
	"math"
	"sort"
)

// Binding pairs an instrument with the measure it is calibrated on and the
// quoted value of that measure.
type Binding struct {
	Instrument Instrument
	Measure    string
	Quote      float64
}

func (b Binding) validate(i int) error {
	if b.Instrument == nil {
		return fmt.Errorf("%w: binding %d has no instrument", ErrInvalidArgument, i)
	}
	if m := b.Instrument.Maturity(); math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: binding %d (%s) maturity %v", ErrInvalidArgument, i, b.Instrument.Name(), m)
	}
	if math.IsNaN(b.Quote) || math.IsInf(b.Quote, 0) {
		return fmt.Errorf("%w: binding %d (%s) quote %v", ErrInvalidArgument, i, b.Instrument.Name(), b.Quote)
	}
	return nil
}

// SortBindings orders bindings by maturity. Of several bindings with the same
// maturity only the last one in the input survives.
func SortBindings(bindings []Binding) []Binding {
	byMaturity := make(map[float64]int, len(bindings))
	out := make([]Binding, 0, len(bindings))
	for _, b := range bindings {
		m := b.Instrument.Maturity()
		if at, ok := byMaturity[m]; ok {
			out[at] = b
			continue
		}
		byMaturity[m] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Instrument.Maturity() < out[j].Instrument.Maturity()
	})
	return out
}

// Maturities returns the sorted unique maturities of bindings.
func Maturities(bindings []Binding) []float64 {
	sorted := SortBindings(bindings)
	out := make([]float64, len(sorted))
	for i, b := range sorted {
		out[i] = b.Instrument.Maturity()
	}
	return out
}
