package main

import (
	"github.com/pthm-cable/gridcomp/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the mortality parameter set.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "rate_a", Path: "mortality.rate_a", Min: 0, Max: 0.25, Default: 0.01},
			{Name: "rate_b", Path: "mortality.rate_b", Min: 0, Max: 0.25, Default: 0.02},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return out
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return out
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return out
}

// InBounds reports whether every value lies within its spec's bounds.
func (pv *ParamVector) InBounds(v []float64) bool {
	for i, spec := range pv.Specs {
		if v[i] < spec.Min || v[i] > spec.Max {
			return false
		}
	}
	return true
}

// StartVector returns the search start point: the values in cfg, or the
// spec defaults when cfg lies outside the searched bounds.
func (pv *ParamVector) StartVector(cfg *config.Config) []float64 {
	if v := pv.ExtractFromConfig(cfg); pv.InBounds(v) {
		return v
	}
	return pv.DefaultVector()
}

// ApplyToConfig writes clamped values into cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Mortality.RateA = clamped[0]
	cfg.Mortality.RateB = clamped[1]
}

// ExtractFromConfig extracts current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{cfg.Mortality.RateA, cfg.Mortality.RateB}
}
