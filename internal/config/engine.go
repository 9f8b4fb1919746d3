package config

import (
	"strconv"

	"sar_command/internal/divisions"
)

// EngineConfig builds the division engine tunables from the environment.
// DIVISION_TARGET_AREA_M2 sets the searchable floor area budget per
// division; EXPANSION_MODE is "area_target" (default) or "component".
func EngineConfig() divisions.Config {
	target := float64(divisions.DefaultTargetAreaM2)
	if raw := getEnv("DIVISION_TARGET_AREA_M2", ""); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			target = v
		}
	}
	return divisions.Config{
		TargetAreaM2: target,
		Mode:         divisions.ParseExpansionMode(getEnv("EXPANSION_MODE", "area_target")),
	}
}
