package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorerAssessThresholds(t *testing.T) {
	s := NewScorer()

	cases := []struct {
		amount int64
		level  Level
		auth   Authorization
	}{
		{amount: 1, level: LevelLow, auth: AuthorizationAutomatic},
		{amount: 9_999, level: LevelLow, auth: AuthorizationAutomatic},
		{amount: 10_000, level: LevelMedium, auth: AuthorizationManagerRequired},
		{amount: 100_000, level: LevelHigh, auth: AuthorizationDualApproval},
		{amount: 999_999, level: LevelHigh, auth: AuthorizationDualApproval},
		{amount: 2_000_000, level: LevelCritical, auth: AuthorizationBoardApproval},
		{amount: -2_000_000, level: LevelCritical, auth: AuthorizationBoardApproval},
	}
	for _, tc := range cases {
		got := s.Assess(tc.amount)
		assert.Equal(t, tc.level, got.Level, "amount %d", tc.amount)
		assert.Equal(t, tc.auth, got.Authorization, "amount %d", tc.amount)
	}
}

func TestScorerIsMonotonic(t *testing.T) {
	s := NewScorer()
	prev := 0
	for _, amount := range []int64{1, 5_000, 50_000, 500_000, 5_000_000} {
		score := s.Assess(amount).Score
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestNewScorerWithThresholdsRejectsUnordered(t *testing.T) {
	s := NewScorerWithThresholds(500, 100, 1_000)
	assert.Equal(t, LevelLow, s.Assess(5_000).Level)

	custom := NewScorerWithThresholds(10, 20, 30)
	assert.Equal(t, LevelCritical, custom.Assess(30).Level)
}
