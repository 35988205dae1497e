package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/curvecal/calibrate"
	"github.com/meenmo/curvecal/smooth"
	"github.com/meenmo/curvecal/spline"
)

// CurvePoint is one sampled ordinate of a calibrated curve.
type CurvePoint struct {
	X        float64 `json:"x"`
	Discount float64 `json:"discount"`
	ZeroRate float64 `json:"zero_rate"`
	Forward  float64 `json:"forward"`
}

// CalibrateOutput is the JSON output of the calibrate command.
type CalibrateOutput struct {
	RunID    string                    `json:"run_id"`
	Curve    string                    `json:"curve"`
	Segments []calibrate.SegmentReport `json:"segments"`
	Points   []CurvePoint              `json:"points"`
}

func newCalibrateCmd(a *app) *cobra.Command {
	var step float64
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Bootstrap the curve and sample discount factors, zero rates and forwards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			curve, res, err := a.calibrate()
			if err != nil {
				return err
			}
			points, err := sample(res.Stretch(), curve.Anchor, step)
			if err != nil {
				return err
			}
			out := CalibrateOutput{RunID: a.runID, Curve: curve.Name, Segments: res.Reports(), Points: points}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEGMENT\tINSTRUMENT\tMATURITY\tQUOTE\tDF\tITER")
			for _, r := range out.Segments {
				fmt.Fprintf(w, "%d\t%s\t%.4f\t%.6f\t%.10f\t%d\n", r.Index, r.Instrument, r.Maturity, r.Quote, r.Parameter, r.Iterations)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "X\tDF\tZERO(%)\tFWD(%)")
			for _, p := range out.Points {
				fmt.Fprintf(w, "%.4f\t%.10f\t%.6f\t%.6f\n", p.X, p.Discount, 100*p.ZeroRate, 100*p.Forward)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&step, "step", 0.5, "sampling step in years")
	return cmd
}

// MetricPoint compares the calibrated and smoothed metric at one ordinate.
type MetricPoint struct {
	X        float64 `json:"x"`
	Raw      float64 `json:"raw"`
	Smoothed float64 `json:"smoothed"`
}

// SmoothOutput is the JSON output of the smooth command.
type SmoothOutput struct {
	RunID     string        `json:"run_id"`
	Curve     string        `json:"curve"`
	Metric    string        `json:"metric"`
	Residuals []float64     `json:"residuals"`
	Points    []MetricPoint `json:"points"`
}

func newSmoothCmd(a *app) *cobra.Command {
	var (
		step      float64
		metric    string
		tolerance float64
		fitKnots  []float64
	)
	cmd := &cobra.Command{
		Use:   "smooth",
		Short: "Calibrate, then refit a smooth shape-preserving curve on a quantification metric",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if metric != "" {
				a.cfg.Smoothing.Metric = metric
			}
			if tolerance > 0 {
				a.cfg.Smoothing.Tolerance = tolerance
			}
			m, err := a.cfg.SmoothingMetric()
			if err != nil {
				return err
			}
			set, err := a.cfg.SmoothingBasis()
			if err != nil {
				return err
			}

			curve, res, err := a.calibrate()
			if err != nil {
				return err
			}
			m = smooth.WithAnchor(m, curve.Anchor)
			opts := []smooth.Option{smooth.WithLogger(a.log)}
			if len(fitKnots) > 0 {
				opts = append(opts, smooth.WithKnots(fitKnots))
			}
			sm, err := smooth.Smooth(res.Stretch(), m, set, a.cfg.Smoothing.Tolerance, opts...)
			if err != nil {
				return err
			}

			out := SmoothOutput{RunID: a.runID, Curve: curve.Name, Metric: m.Name(), Residuals: sm.Residuals()}
			for _, x := range grid(res.Stretch(), curve.Anchor, step) {
				raw, err := m.Value(res.Stretch(), x)
				if err != nil {
					return err
				}
				fit, err := sm.MetricValue(x)
				if err != nil {
					return err
				}
				out.Points = append(out.Points, MetricPoint{X: x, Raw: raw, Smoothed: fit})
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "X\tRAW %s\tSMOOTHED\n", m.Name())
			for _, p := range out.Points {
				fmt.Fprintf(w, "%.4f\t%.10f\t%.10f\n", p.X, p.Raw, p.Smoothed)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&step, "step", 0.5, "sampling step in years")
	cmd.Flags().StringVar(&metric, "metric", "", "discount-factor, zero-rate or log-discount (default from config)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "knot reproduction tolerance (default from config)")
	cmd.Flags().Float64SliceVar(&fitKnots, "fit-knots", nil, "fit the smoothed curve on these ordinates instead of the calibration knots")
	return cmd
}

// JacobianOutput is the JSON output of the jacobian command.
type JacobianOutput struct {
	RunID       string      `json:"run_id"`
	Curve       string      `json:"curve"`
	Output      string      `json:"output"`
	Ordinates   []float64   `json:"ordinates"`
	Instruments []string    `json:"instruments"`
	Rows        [][]float64 `json:"rows"`
}

func newJacobianCmd(a *app) *cobra.Command {
	var (
		at      []float64
		forward bool
	)
	cmd := &cobra.Command{
		Use:   "jacobian",
		Short: "Sensitivity of curve values (or instantaneous forwards) to every quote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			curve, res, err := a.calibrate()
			if err != nil {
				return err
			}
			ordinates := at
			if len(ordinates) == 0 {
				ordinates = res.Stretch().Knots()
			}
			outs := make([]calibrate.Output, len(ordinates))
			kind := "discount"
			for i, x := range ordinates {
				outs[i] = calibrate.Value(x)
				if forward {
					outs[i] = calibrate.InstantaneousForward(x)
					kind = "forward"
				}
			}
			jac, err := res.JacobianOf(outs)
			if err != nil {
				return err
			}

			out := JacobianOutput{RunID: a.runID, Curve: curve.Name, Output: kind, Ordinates: ordinates}
			for _, b := range res.Bindings() {
				out.Instruments = append(out.Instruments, b.Instrument.Name())
			}
			rows, _ := jac.Dims()
			for i := 0; i < rows; i++ {
				out.Rows = append(out.Rows, mat.Row(nil, i, jac))
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "∂%s/∂quote at %v\ninstruments %v\n\n", kind, ordinates, out.Instruments)
			fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", mat.Formatted(jac, mat.Squeeze()))
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&at, "at", nil, "ordinates to differentiate (default: curve knots)")
	cmd.Flags().BoolVar(&forward, "forward", false, "differentiate instantaneous forwards instead of discount factors")
	return cmd
}

func grid(s *spline.Stretch, anchor, step float64) []float64 {
	_, hi := s.Domain()
	if !(step > 0) {
		step = 0.5
	}
	var xs []float64
	for k := 0; ; k++ {
		x := anchor + float64(k)*step
		if x > hi+1e-12 {
			break
		}
		xs = append(xs, x)
	}
	if len(xs) == 0 || xs[len(xs)-1] < hi-1e-12 {
		xs = append(xs, hi)
	}
	return xs
}

func sample(s *spline.Stretch, anchor, step float64) ([]CurvePoint, error) {
	xs := grid(s, anchor, step)
	out := make([]CurvePoint, 0, len(xs))
	for _, x := range xs {
		d, err := s.Evaluate(x)
		if err != nil {
			return nil, err
		}
		d1, err := s.Derivative(x, 1)
		if err != nil {
			return nil, err
		}
		z, err := smooth.ZeroRate{Anchor: anchor}.Value(s, x)
		if err != nil {
			return nil, err
		}
		out = append(out, CurvePoint{X: x, Discount: d, ZeroRate: z, Forward: -d1 / d})
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
