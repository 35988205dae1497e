package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meenmo/curvecal/basis"
	"github.com/meenmo/curvecal/calibrate"
	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/internal/logging"
	"github.com/meenmo/curvecal/marketdata"
	"github.com/meenmo/curvecal/spline"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgPath   string
	curvePath string
	jsonOut   bool

	cfg    config.Config
	log    *slog.Logger
	closer io.Closer
	runID  string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "curvecal",
		Short:        "Spline curve calibration and quote sensitivities",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "TOML configuration file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&a.curvePath, "curve", "", "YAML curve definition")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "write JSON instead of a table")

	root.AddCommand(newCalibrateCmd(a), newSmoothCmd(a), newJacobianCmd(a))
	return root
}

func (a *app) setup() error {
	a.cfg = config.Default()
	if strings.TrimSpace(a.cfgPath) != "" {
		cfg, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	log, closer, err := logging.New(a.cfg.Logging)
	if err != nil {
		return err
	}
	a.runID = uuid.NewString()
	a.log = log.With("run_id", a.runID)
	a.closer = closer
	return nil
}

// calibrate loads the curve definition and runs the bootstrap.
func (a *app) calibrate() (*marketdata.Curve, *calibrate.Result, error) {
	if strings.TrimSpace(a.curvePath) == "" {
		return nil, nil, fmt.Errorf("--curve is required")
	}
	curve, err := marketdata.LoadCurve(a.curvePath)
	if err != nil {
		return nil, nil, err
	}
	bindings, err := curve.Bindings()
	if err != nil {
		return nil, nil, err
	}

	set, err := a.cfg.Basis()
	if err != nil {
		return nil, nil, err
	}
	boundary, err := a.cfg.Boundary()
	if err != nil {
		return nil, nil, err
	}
	extrap, err := a.cfg.Extrapolation()
	if err != nil {
		return nil, nil, err
	}
	skel, err := calibrate.Skeleton(curve.Anchor, bindings, []basis.Set{set}, boundary, a.cfg.Calibration.Continuity, spline.WithExtrapolation(extrap))
	if err != nil {
		return nil, nil, err
	}

	opts := []calibrate.Option{calibrate.FromConfig(a.cfg), calibrate.WithLogger(a.log)}
	if curve.LeftValue != nil {
		opts = append(opts, calibrate.WithLeftValue(curve.Left()))
	}
	a.log.Info("calibrating",
		"curve", curve.Name,
		"instruments", len(bindings),
		"basis", set.Name(),
		"method", a.cfg.Solver.Method,
	)
	res, err := calibrate.Calibrate(skel, bindings, opts...)
	if err != nil {
		a.log.Error("calibration failed", "curve", curve.Name, "error", err)
		return nil, nil, err
	}
	a.log.Info("calibrated", "curve", curve.Name, "segments", res.Stretch().Len())
	return curve, res, nil
}
