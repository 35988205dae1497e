package marketdata

import (
	"fmt"
	"strconv"
	"strings"
)

// Tenor converts tenor strings like "ON", "1W", "3M", "10Y" or a bare year
// count to year fractions. Days and weeks use a 365-day year.
func Tenor(tenor string) (float64, error) {
	t := strings.TrimSpace(strings.ToUpper(tenor))
	switch t {
	case "":
		return 0, nil
	case "ON", "O/N":
		return 1.0 / 365.0, nil
	case "TN", "T/N":
		return 2.0 / 365.0, nil
	}

	units := []struct {
		suffix string
		years  float64
	}{
		{"D", 1.0 / 365.0},
		{"W", 7.0 / 365.0},
		{"M", 1.0 / 12.0},
		{"Y", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(t, u.suffix) {
			v, err := strconv.Atoi(strings.TrimSuffix(t, u.suffix))
			if err != nil || v < 0 {
				return 0, fmt.Errorf("Tenor: %w: %q", ErrInvalidTenor, tenor)
			}
			return float64(v) * u.years, nil
		}
	}
	if v, err := strconv.ParseFloat(t, 64); err == nil && v >= 0 {
		return v, nil
	}
	return 0, fmt.Errorf("Tenor: %w: %q", ErrInvalidTenor, tenor)
}
