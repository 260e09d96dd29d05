package fairness

import "time"

// Thresholds holds every numeric cut-off used by the rules, the scorer and the
// Gini buckets. Zero values are not meaningful; start from DefaultThresholds.
type Thresholds struct {
	DominanceShare          float64       `yaml:"dominance_share"`
	ExtremeGini             float64       `yaml:"extreme_gini"`
	FairGini                float64       `yaml:"fair_gini"`
	ElevatedGini            float64       `yaml:"elevated_gini"`
	VarianceTolerance       float64       `yaml:"variance_tolerance"`
	ManifestWeightTolerance float64       `yaml:"manifest_weight_tolerance"`
	SuspiciousSigningWindow time.Duration `yaml:"suspicious_signing_window"`
	TransparentSigningLead  time.Duration `yaml:"transparent_signing_lead"`
	DiverseTypeCount        int           `yaml:"diverse_type_count"`
	ExploitationDisputes    int           `yaml:"exploitation_disputes"`
	LowLeadershipScore      float64       `yaml:"low_leadership_score"`
	ReferenceGreenFlags     int           `yaml:"reference_green_flags"`

	GiniWeight     float64 `yaml:"gini_weight"`
	RedFlagPenalty float64 `yaml:"red_flag_penalty"`
	GreenFlagBonus float64 `yaml:"green_flag_bonus"`

	Buckets GiniBuckets `yaml:"buckets"`
}

// GiniBuckets are exclusive upper bounds for the reporting categories.
type GiniBuckets struct {
	Excellent float64 `yaml:"excellent"`
	Good      float64 `yaml:"good"`
	Fair      float64 `yaml:"fair"`
	Poor      float64 `yaml:"poor"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		DominanceShare:          0.70,
		ExtremeGini:             0.70,
		FairGini:                0.40,
		ElevatedGini:            0.50,
		VarianceTolerance:       0.05,
		ManifestWeightTolerance: 0.01,
		SuspiciousSigningWindow: time.Hour,
		TransparentSigningLead:  24 * time.Hour,
		DiverseTypeCount:        3,
		ExploitationDisputes:    3,
		LowLeadershipScore:      50,
		ReferenceGreenFlags:     3,
		GiniWeight:              0.30,
		RedFlagPenalty:          0.15,
		GreenFlagBonus:          0.05,
		Buckets: GiniBuckets{
			Excellent: 0.30,
			Good:      0.40,
			Fair:      0.60,
			Poor:      0.70,
		},
	}
}
