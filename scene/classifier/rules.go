package classifier

import (
	"github.com/RyanBlaney/sonido-scene/algorithms/common"
	"github.com/RyanBlaney/sonido-scene/algorithms/stats"
	"github.com/RyanBlaney/sonido-scene/scene/extractors"
)

// Rule labels
const (
	LabelQuiet        = "quiet"
	LabelConversation = "conversation"
	LabelMusic        = "music"
	LabelNoisy        = "noisy"
)

// DefaultRuleLabels is the label order used with RuleStrategy when no labels file overrides it
var DefaultRuleLabels = []string{LabelQuiet, LabelConversation, LabelMusic, LabelNoisy}

// ruleInputs are the raw, unnormalized features the rules look at
type ruleInputs struct {
	tempo    float64
	rmsMean  float64
	rmsStd   float64
	centroid float64
}

// rule returns a non-negative score for one label
type rule func(in ruleInputs) float64

// RuleStrategy scores labels from raw tempo, energy, energy variability
// and brightness. Labels without a rule score 0.
type RuleStrategy struct {
	rules map[string]rule

	tempoIdx, rmsMeanIdx, rmsStdIdx, centroidIdx int
}

// NewRuleStrategy creates the rule scorer with the default rule set
func NewRuleStrategy() *RuleStrategy {
	idx := func(name string) int {
		i, _ := extractors.FeatureIndex(name)
		return i
	}
	return &RuleStrategy{
		rules: map[string]rule{
			LabelQuiet:        quietRule,
			LabelConversation: conversationRule,
			LabelMusic:        musicRule,
			LabelNoisy:        noisyRule,
		},
		tempoIdx:    idx("tempo"),
		rmsMeanIdx:  idx("rms_mean"),
		rmsStdIdx:   idx("rms_std"),
		centroidIdx: idx("centroid_mean"),
	}
}

// Name implements Strategy
func (r *RuleStrategy) Name() string {
	return "rules"
}

// Scores implements Strategy. Scores are unnormalized.
func (r *RuleStrategy) Scores(raw []float64, _ []float64, labels []string) ([]float64, error) {
	if len(raw) != extractors.FeatureCount {
		return nil, ErrLengthMismatch
	}

	in := ruleInputs{
		tempo:    raw[r.tempoIdx],
		rmsMean:  raw[r.rmsMeanIdx],
		rmsStd:   raw[r.rmsStdIdx],
		centroid: raw[r.centroidIdx],
	}

	scores := make([]float64, len(labels))
	for i, label := range labels {
		if score, ok := r.rules[label]; ok {
			scores[i] = max(0, score(in))
		}
	}
	return scores, nil
}

// presence ramps from 0 for silence to 1 at moderate loudness
func presence(in ruleInputs) float64 {
	return common.Clamp(in.rmsMean/0.05, 0, 1)
}

// variability is the coefficient of variation of frame energy, capped at 1
func variability(in ruleInputs) float64 {
	energy := stats.Summary{Mean: in.rmsMean, StdDev: in.rmsStd}
	return common.Clamp(energy.CoefficientOfVariation(), 0, 1)
}

func quietRule(in ruleInputs) float64 {
	return max(0, 1-in.rmsMean/0.02)
}

// speech is bursty and sits in the voice band
func conversationRule(in ruleInputs) float64 {
	band := 0.2
	if in.centroid >= 300 && in.centroid <= 3000 {
		band = 1
	}
	return presence(in) * variability(in) * band
}

// music has steadier energy and a tempo in the common range
func musicRule(in ruleInputs) float64 {
	beat := 0.5
	if in.tempo >= 80 && in.tempo <= 160 {
		beat = 1
	}
	return presence(in) * (1 - variability(in)) * beat
}

func noisyRule(in ruleInputs) float64 {
	return presence(in) * common.Clamp((in.centroid-2000)/4000, 0, 1)
}
