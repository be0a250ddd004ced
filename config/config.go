// Package config loads server and economy settings from a TOML file,
// overlaying them on built-in defaults. Every point price in the system
// is tunable here without a rebuild.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/plutohq/loyalty-engine/ledger"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Economy EconomyConfig `toml:"economy"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	DBPath         string   `toml:"db_path"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type EconomyConfig struct {
	CampaignLaunchCost  int64            `toml:"campaign_launch_cost"`
	QuestAddCost        int64            `toml:"quest_add_cost"`
	QuestCompleteReward int64            `toml:"quest_complete_reward"`
	ReferralReward      int64            `toml:"referral_reward"`
	MinTip              int64            `toml:"min_tip"`
	MaxTip              int64            `toml:"max_tip"`
	DailyClaim          []int64          `toml:"daily_claim"`
	FeatureCosts        map[string]int64 `toml:"feature_costs"`
}

// Default returns the built-in configuration.
func Default() Config {
	eco := ledger.DefaultEconomy()
	return Config{
		Server: ServerConfig{
			Port:           8080,
			DBPath:         "pluto.db",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Economy: EconomyConfig{
			CampaignLaunchCost:  eco.CampaignLaunchCost,
			QuestAddCost:        eco.QuestAddCost,
			QuestCompleteReward: eco.QuestCompleteReward,
			ReferralReward:      eco.ReferralReward,
			MinTip:              eco.MinTip,
			MaxTip:              eco.MaxTip,
			DailyClaim:          eco.DailyClaim[:],
			FeatureCosts:        eco.FeatureCosts,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Economy.DailyClaim) != 7 {
		return fmt.Errorf("economy.daily_claim must list exactly 7 values, got %d", len(c.Economy.DailyClaim))
	}
	if c.Economy.MinTip < 1 || c.Economy.MaxTip < c.Economy.MinTip {
		return fmt.Errorf("economy tip bounds invalid: min %d, max %d", c.Economy.MinTip, c.Economy.MaxTip)
	}
	return nil
}

// PointsEconomy converts the config into the ledger's Economy.
func (c Config) PointsEconomy() ledger.Economy {
	eco := ledger.Economy{
		CampaignLaunchCost:  c.Economy.CampaignLaunchCost,
		QuestAddCost:        c.Economy.QuestAddCost,
		QuestCompleteReward: c.Economy.QuestCompleteReward,
		ReferralReward:      c.Economy.ReferralReward,
		MinTip:              c.Economy.MinTip,
		MaxTip:              c.Economy.MaxTip,
		FeatureCosts:        c.Economy.FeatureCosts,
	}
	copy(eco.DailyClaim[:], c.Economy.DailyClaim)
	return eco
}
