/*
economy.go - Point prices and rewards

All fixed costs live here rather than at call sites so that the numbers
can be overridden from config in one place. Defaults match the launch
economy.
*/
package ledger

// Well-known feature names for FeatureCosts.
const (
	FeatureWalletAnalysis = "wallet_analysis"
	FeatureTrendDigest    = "trend_digest"
	FeatureTelegramBot    = "telegram_bot"
	FeatureGmailDigest    = "gmail_digest"
)

// Economy holds every tunable point amount in the system.
type Economy struct {
	// Spend costs
	CampaignLaunchCost int64
	QuestAddCost       int64
	FeatureCosts       map[string]int64

	// Earn rewards
	QuestCompleteReward int64
	ReferralReward      int64

	// Tip bounds (inclusive)
	MinTip int64
	MaxTip int64

	// Points for daily-claim days 1..7. Day 8+ stays on the day-7 value.
	DailyClaim [7]int64
}

// DefaultEconomy returns the launch point economy.
func DefaultEconomy() Economy {
	return Economy{
		CampaignLaunchCost:  100,
		QuestAddCost:        50,
		QuestCompleteReward: 25,
		ReferralReward:      500,
		MinTip:              1,
		MaxTip:              1_000_000,
		DailyClaim:          [7]int64{10, 20, 30, 40, 50, 60, 70},
		FeatureCosts: map[string]int64{
			FeatureWalletAnalysis: 10,
			FeatureTrendDigest:    5,
			FeatureTelegramBot:    2,
			FeatureGmailDigest:    3,
		},
	}
}

// FeatureCost returns the cost of a named feature and whether it exists.
func (e Economy) FeatureCost(name string) (int64, bool) {
	cost, ok := e.FeatureCosts[name]
	return cost, ok
}
