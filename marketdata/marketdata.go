// Package marketdata loads curve definitions (instrument quotes on a tenor
// grid) from YAML and turns them into calibration bindings.
package marketdata

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/meenmo/curvecal/calibrate"
	"github.com/meenmo/curvecal/instrument"
)

var (
	ErrInvalidTenor = errors.New("marketdata: invalid tenor")
	ErrInvalidCurve = errors.New("marketdata: invalid curve definition")
)

// Quote units.
const (
	UnitPercent = "percent"
	UnitBasis   = "bp"
	UnitDecimal = "decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	tenThousand = decimal.NewFromInt(10000)
)

// Curve is one curve definition.
//
//	name: USD-SOFR
//	anchor: 0
//	unit: percent
//	instruments:
//	  - {name: DEP6M, type: deposit, tenor: 6M, quote: "4.31"}
//	  - {name: OIS2Y, type: swap, tenor: 2Y, frequency: 1, quote: "3.95"}
//
// With a settlement date (YYYY-MM-DD), month and year tenors roll on the
// calendar, instruments may give an explicit maturity date, and both are
// converted to year fractions with DayCount (ACT/365F by default). Rolled
// dates are moved onto business days by Roll, skipping weekends and Holidays.
type Curve struct {
	Name        string   `yaml:"name"`
	Anchor      float64  `yaml:"anchor"`
	LeftValue   *float64 `yaml:"left_value"`
	Unit        string   `yaml:"unit"`
	Settlement  string   `yaml:"settlement"`
	DayCount    string   `yaml:"day_count"`
	Roll        string   `yaml:"roll"`
	Holidays    []string `yaml:"holidays"`
	Instruments []Quote  `yaml:"instruments"`
}

// Quote is one quoted instrument. Start and Tenor are tenors measured from
// the curve anchor; the instrument runs from anchor+Start to
// anchor+Start+Tenor.
type Quote struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Start     string `yaml:"start"`
	Tenor     string `yaml:"tenor"`
	Maturity  string `yaml:"maturity"`
	Frequency int    `yaml:"frequency"`
	Measure   string `yaml:"measure"`
	Unit      string `yaml:"unit"`
	Quote     string `yaml:"quote"`
}

// LoadCurve reads and validates a YAML curve definition.
func LoadCurve(path string) (*Curve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCurve: %w", err)
	}
	c, err := ParseCurve(data)
	if err != nil {
		return nil, fmt.Errorf("LoadCurve: %s: %w", path, err)
	}
	return c, nil
}

// ParseCurve decodes a YAML curve definition.
func ParseCurve(data []byte) (*Curve, error) {
	var c Curve
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCurve, err)
	}
	if len(c.Instruments) == 0 {
		return nil, fmt.Errorf("%w: no instruments", ErrInvalidCurve)
	}
	if c.Unit == "" {
		c.Unit = UnitPercent
	}
	if _, err := scale(c.Unit); err != nil {
		return nil, err
	}
	if _, err := c.dates(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Left returns the pinned curve value at the anchor (1 unless set).
func (c *Curve) Left() float64 {
	if c.LeftValue == nil {
		return 1
	}
	return *c.LeftValue
}

// Bindings builds one calibration binding per quoted instrument.
func (c *Curve) Bindings() ([]calibrate.Binding, error) {
	out := make([]calibrate.Binding, 0, len(c.Instruments))
	for i, q := range c.Instruments {
		b, err := c.binding(q)
		if err != nil {
			return nil, fmt.Errorf("Bindings: instrument %d (%s): %w", i, q.Name, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *Curve) binding(q Quote) (calibrate.Binding, error) {
	start, end, err := c.span(q)
	if err != nil {
		return calibrate.Binding{}, err
	}
	name := q.Name
	if name == "" {
		name = strings.ToUpper(q.Type) + q.Tenor
	}

	var inst calibrate.Instrument
	measure := q.Measure
	switch strings.ToLower(q.Type) {
	case "deposit":
		inst, err = instrument.NewDeposit(name, start, end)
		measure = orDefault(measure, instrument.MeasureRate)
	case "fra":
		inst, err = instrument.NewFRA(name, start, end)
		measure = orDefault(measure, instrument.MeasureForwardRate)
	case "zero":
		inst, err = instrument.NewZeroBond(name, end)
		measure = orDefault(measure, instrument.MeasureRate)
	case "swap":
		conv := instrument.AnnualFixed
		if q.Frequency != 0 {
			conv = instrument.Conventions{FixedFrequency: q.Frequency}
		}
		inst, err = instrument.NewSwap(name, start, end, conv)
		measure = orDefault(measure, instrument.MeasureSwapRate)
	default:
		return calibrate.Binding{}, fmt.Errorf("%w: instrument type %q", ErrInvalidCurve, q.Type)
	}
	if err != nil {
		return calibrate.Binding{}, err
	}

	unit := orDefault(q.Unit, c.Unit)
	if measure == instrument.MeasureDiscountFactor {
		unit = UnitDecimal
	}
	value, err := Convert(q.Quote, unit)
	if err != nil {
		return calibrate.Binding{}, err
	}
	return calibrate.Binding{Instrument: inst, Measure: measure, Quote: value}, nil
}

// Convert parses a quote exactly and rescales it to a decimal rate.
func Convert(quote, unit string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(quote))
	if err != nil {
		return 0, fmt.Errorf("%w: quote %q: %v", ErrInvalidCurve, quote, err)
	}
	div, err := scale(unit)
	if err != nil {
		return 0, err
	}
	return d.Div(div).InexactFloat64(), nil
}

func scale(unit string) (decimal.Decimal, error) {
	switch strings.ToLower(unit) {
	case UnitPercent, "%":
		return hundred, nil
	case UnitBasis:
		return tenThousand, nil
	case UnitDecimal:
		return decimal.NewFromInt(1), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unit %q", ErrInvalidCurve, unit)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
