package planner

// Policy collects every tunable threshold used by the trigger, proposal and
// safety engines. Values are injected (normally from config) so the engine
// logic stays free of inline magic numbers.
type Policy struct {
	// --- Trigger derivation ---
	TooHardMinSignals           int     `mapstructure:"too_hard_min_signals"`
	TooHardEffortFloor          int     `mapstructure:"too_hard_effort_floor"` // RPE at or above counts as a too-hard signal
	MissedKeyMinOpportunities   int     `mapstructure:"missed_key_min_opportunities"`
	MissedKeyRateThreshold      float64 `mapstructure:"missed_key_rate_threshold"`
	HighComplianceMinSamples    int     `mapstructure:"high_compliance_min_samples"`
	HighComplianceRateThreshold float64 `mapstructure:"high_compliance_rate_threshold"`

	// --- Proposal shaping (percent deltas) ---
	SorenessVolumeCutPct         float64 `mapstructure:"soreness_volume_cut_pct"`
	TooHardVolumeCutPct          float64 `mapstructure:"too_hard_volume_cut_pct"`
	MissedKeyDurationCutPct      float64 `mapstructure:"missed_key_duration_cut_pct"`
	HighComplianceVolumeBoostPct float64 `mapstructure:"high_compliance_volume_boost_pct"`
	HighComplianceLongBoostPct   float64 `mapstructure:"high_compliance_long_boost_pct"`

	// --- Safety bounds ---
	VolumeDeltaMinPct      float64 `mapstructure:"volume_delta_min_pct"` // Most negative ADJUST_WEEK_VOLUME allowed
	VolumeDeltaMaxPct      float64 `mapstructure:"volume_delta_max_pct"` // Most positive ADJUST_WEEK_VOLUME allowed
	DurationIncreaseCapPct float64 `mapstructure:"duration_increase_cap_pct"`
	MinSessionMinutes      int     `mapstructure:"min_session_minutes"`
}

// DefaultPolicy returns the tuned defaults. These are starting points meant
// to be overridden per deployment, not derived constants.
func DefaultPolicy() Policy {
	return Policy{
		TooHardMinSignals:           2,
		TooHardEffortFloor:          8,
		MissedKeyMinOpportunities:   2,
		MissedKeyRateThreshold:      0.5,
		HighComplianceMinSamples:    3,
		HighComplianceRateThreshold: 0.85,

		SorenessVolumeCutPct:         -10,
		TooHardVolumeCutPct:          -10,
		MissedKeyDurationCutPct:      -15,
		HighComplianceVolumeBoostPct: 8,
		HighComplianceLongBoostPct:   10,

		VolumeDeltaMinPct:      -20,
		VolumeDeltaMaxPct:      12,
		DurationIncreaseCapPct: 25,
		MinSessionMinutes:      15,
	}
}
