package risk

import "github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"

// Policy maps an aggregated score and critical alert count to an access
// decision. Thresholds are deployment policy, not code: they load from
// configuration so risk appetite can be tuned without a release.
type Policy struct {
	BlockScore         int
	BlockCriticals     int
	ChallengeScore     int
	ChallengeCriticals int
}

// DefaultPolicy returns the reference thresholds.
func DefaultPolicy() Policy {
	return Policy{
		BlockScore:         80,
		BlockCriticals:     2,
		ChallengeScore:     50,
		ChallengeCriticals: 1,
	}
}

// Decide is a pure mapping from (total score, critical alert count) to the
// access decision. The block score is exclusive: a single critical signal
// landing exactly on the threshold challenges rather than blocks; blocking
// needs a higher score or a second critical.
func (p Policy) Decide(totalScore, criticalCount int) domain.Status {
	switch {
	case totalScore > p.BlockScore || criticalCount >= p.BlockCriticals:
		return domain.StatusBlocked
	case totalScore >= p.ChallengeScore || criticalCount >= p.ChallengeCriticals:
		return domain.StatusChallenge
	default:
		return domain.StatusApproved
	}
}
