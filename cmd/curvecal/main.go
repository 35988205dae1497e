// Command curvecal calibrates a spline discount curve from a YAML curve
// definition and reports the curve, its smoothed metric and its quote
// Jacobian.
//
//	curvecal calibrate --curve usd.yaml [--config curvecal.toml] [--step 0.5] [--json]
//	curvecal smooth    --curve usd.yaml [--metric zero-rate]
//	curvecal jacobian  --curve usd.yaml --at 1,2,5 [--forward]
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
