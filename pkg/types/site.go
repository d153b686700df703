package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ArrayType is the PVWatts mounting type of the array.
type ArrayType int

const (
	ArrayTypeFixedOpenRack ArrayType = iota
	ArrayTypeFixedRoofMount
	ArrayTypeOneAxis
	ArrayTypeOneAxisBacktracking
	ArrayTypeTwoAxis
)

var arrayTypeNames = []string{
	ArrayTypeFixedOpenRack:       "fixed-open-rack",
	ArrayTypeFixedRoofMount:      "fixed-roof-mount",
	ArrayTypeOneAxis:             "1-axis-tracking",
	ArrayTypeOneAxisBacktracking: "1-axis-backtracking",
	ArrayTypeTwoAxis:             "2-axis-tracking",
}

func (a ArrayType) String() string {
	if a < 0 || int(a) >= len(arrayTypeNames) {
		return fmt.Sprintf("ArrayType(%d)", int(a))
	}
	return arrayTypeNames[a]
}

// UnmarshalJSON accepts either the upstream integer code or the name.
func (a *ArrayType) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnum(b, arrayTypeNames)
	if err != nil {
		return fmt.Errorf("invalid array type: %w", err)
	}
	*a = ArrayType(v)
	return nil
}

// ModuleType is the PVWatts module (panel) type.
type ModuleType int

const (
	ModuleTypeStandard ModuleType = iota
	ModuleTypePremium
	ModuleTypeThinFilm
)

var moduleTypeNames = []string{
	ModuleTypeStandard: "standard",
	ModuleTypePremium:  "premium",
	ModuleTypeThinFilm: "thin-film",
}

func (m ModuleType) String() string {
	if m < 0 || int(m) >= len(moduleTypeNames) {
		return fmt.Sprintf("ModuleType(%d)", int(m))
	}
	return moduleTypeNames[m]
}

// UnmarshalJSON accepts either the upstream integer code or the name.
func (m *ModuleType) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnum(b, moduleTypeNames)
	if err != nil {
		return fmt.Errorf("invalid module type: %w", err)
	}
	*m = ModuleType(v)
	return nil
}

func unmarshalEnum(b []byte, names []string) (int, error) {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, err
	}
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", s)
}

// SiteConfig holds the fixed site and system parameters sent with every
// upstream request. It is built once at startup and never changes.
type SiteConfig struct {
	Latitude         float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude        float64    `json:"longitude" validate:"gte=-180,lte=180"`
	SystemCapacityKW float64    `json:"systemCapacityKW" validate:"gte=0.05,lte=500000"`
	ArrayType        ArrayType  `json:"arrayType" validate:"gte=0,lte=4"`
	ModuleType       ModuleType `json:"moduleType" validate:"gte=0,lte=2"`
	LossesPercent    float64    `json:"lossesPercent" validate:"gte=-5,lte=99"`
}

// DefaultSiteConfig is the roof-mounted 4 kW system the service was built for.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Latitude:         51.20578,
		Longitude:        3.47789,
		SystemCapacityKW: 4,
		ArrayType:        ArrayTypeFixedRoofMount,
		ModuleType:       ModuleTypePremium,
		LossesPercent:    10,
	}
}
