package script

import "strings"

// Creativity levels accepted for script generation.
const (
	CreativityFactual  = "factual"
	CreativityCreative = "creative"
	CreativityBalanced = "balanced"
)

// NormalizeCreativity lowercases and validates a creativity level,
// falling back to balanced for anything unrecognized.
func NormalizeCreativity(level string) string {
	lowered := strings.ToLower(level)
	switch lowered {
	case CreativityFactual, CreativityCreative, CreativityBalanced:
		return lowered
	}
	return CreativityBalanced
}

// TemperatureFor maps a creativity level to a sampling temperature.
func TemperatureFor(level string) float64 {
	switch level {
	case CreativityFactual:
		return 0.5
	case CreativityCreative:
		return 0.9
	default:
		return 0.7
	}
}

// CreativityDescription describes a level for prompt text.
func CreativityDescription(level string) string {
	switch level {
	case CreativityFactual:
		return "factual and realistic"
	case CreativityCreative:
		return "creative and imaginative"
	default:
		return "balanced blend of realism and creativity"
	}
}

// ClampSceneCount validates a requested scene count against the
// allowed range, substituting the default when out of range.
func ClampSceneCount(n int) int {
	if n < 1 || n > 20 {
		return 5
	}
	return n
}
