package risk

// Level is the categorical risk attached to a ledger movement.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Authorization hints which approval a caller should obtain before acting on a
// movement of this size. The ledger labels, it does not enforce.
type Authorization string

const (
	AuthorizationAutomatic       Authorization = "AUTOMATIC"
	AuthorizationManagerRequired Authorization = "MANAGER_REQUIRED"
	AuthorizationDualApproval    Authorization = "DUAL_APPROVAL"
	AuthorizationBoardApproval   Authorization = "BOARD_APPROVAL"
)

// Default thresholds, in the currency's smallest unit.
const (
	MediumThreshold   int64 = 10_000
	HighThreshold     int64 = 100_000
	CriticalThreshold int64 = 1_000_000
)

// Assessment is the outcome of scoring a single amount.
type Assessment struct {
	Score         int
	Level         Level
	Authorization Authorization
}

// Scorer maps an amount to an Assessment using a monotonic step function.
type Scorer struct {
	medium   int64
	high     int64
	critical int64
}

// NewScorer returns a scorer using the default thresholds.
func NewScorer() *Scorer {
	return &Scorer{medium: MediumThreshold, high: HighThreshold, critical: CriticalThreshold}
}

// NewScorerWithThresholds builds a scorer with custom step boundaries. Values
// that are not strictly increasing fall back to the defaults.
func NewScorerWithThresholds(medium, high, critical int64) *Scorer {
	if medium <= 0 || high <= medium || critical <= high {
		return NewScorer()
	}
	return &Scorer{medium: medium, high: high, critical: critical}
}

// Assess scores the absolute value of amount.
func (s *Scorer) Assess(amount int64) Assessment {
	if amount < 0 {
		amount = -amount
	}
	switch {
	case amount >= s.critical:
		return Assessment{Score: 95, Level: LevelCritical, Authorization: AuthorizationBoardApproval}
	case amount >= s.high:
		return Assessment{Score: 70, Level: LevelHigh, Authorization: AuthorizationDualApproval}
	case amount >= s.medium:
		return Assessment{Score: 40, Level: LevelMedium, Authorization: AuthorizationManagerRequired}
	default:
		return Assessment{Score: 10, Level: LevelLow, Authorization: AuthorizationAutomatic}
	}
}
