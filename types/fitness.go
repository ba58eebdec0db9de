package types

// FitnessWeights blends the worker fitness components. Each component is
// normalized to [0,1] before weighting; the creativity term is additive
// on top of the main blend, and the final score is clamped to [0,1].
type FitnessWeights struct {
	Quality    float64 `yaml:"quality"`
	Resolution float64 `yaml:"resolution"`
	PRSuccess  float64 `yaml:"prSuccess"`
	Review     float64 `yaml:"review"`
	Creativity float64 `yaml:"creativity"`
}

// DefaultFitnessWeights returns the standard fitness blend.
func DefaultFitnessWeights() FitnessWeights {
	return FitnessWeights{
		Quality:    0.30,
		Resolution: 0.25,
		PRSuccess:  0.25,
		Review:     0.20,
		Creativity: 0.10,
	}
}
