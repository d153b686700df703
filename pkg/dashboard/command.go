package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jameshartig/solarwatts/pkg/series"
)

// ApplyCommand applies a single "name=value" change (or "reset") to p.
// Values outside the slider ranges are clamped the way the sliders would.
func ApplyCommand(p Params, cmd string) (Params, error) {
	cmd = strings.TrimSpace(cmd)
	if strings.EqualFold(cmd, "reset") {
		return DefaultParams(), nil
	}

	name, raw, ok := strings.Cut(cmd, "=")
	if !ok {
		return p, fmt.Errorf("expected name=value or reset, got %q", cmd)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return p, fmt.Errorf("invalid value for %s: %q", name, raw)
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tilt":
		p.Tilt = math.Min(math.Max(v, 0), 90)
	case "azimuth":
		p.Azimuth = math.Min(math.Max(v, 0), 360)
	case "multiplier":
		p.Multiplier = series.NormalizeMultiplier(v)
	default:
		return p, fmt.Errorf("unknown parameter %q (tilt, azimuth, multiplier)", name)
	}
	return p, nil
}
