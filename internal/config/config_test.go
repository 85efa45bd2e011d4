package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalConfig = `
telegram:
  bot_token: "123456:TEST-TOKEN"
server:
  jobs_secret: "cron-secret"
database:
  postgres:
    host: localhost
    database: streakfarm
    user: streakfarm
  redis:
    host: localhost
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Rewards.DailyCheckinPoints != 100 {
		t.Errorf("DailyCheckinPoints = %d, want 100", cfg.Rewards.DailyCheckinPoints)
	}
	if cfg.Rewards.CheckinCooldown != 20*time.Hour {
		t.Errorf("CheckinCooldown = %v, want 20h", cfg.Rewards.CheckinCooldown)
	}
	if cfg.Rewards.StreakGrace != 4*time.Hour {
		t.Errorf("StreakGrace = %v, want 4h", cfg.Rewards.StreakGrace)
	}
	if cfg.Rewards.WalletConnectionBonus != 5000 {
		t.Errorf("WalletConnectionBonus = %d, want 5000", cfg.Rewards.WalletConnectionBonus)
	}
	if cfg.Boxes.PerDay != 3 || cfg.Boxes.TTL != 3*time.Hour {
		t.Errorf("Boxes = %+v, want 3 per day with 3h TTL", cfg.Boxes)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Time != "00:05" || cfg.Scheduler.Timezone != "UTC" {
		t.Errorf("Scheduler = %+v, want enabled at 00:05 UTC", cfg.Scheduler)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CRON_SECRET", "env-secret")

	cfg, err := Load(writeConfigFile(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want env override 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// File value wins over the CRON_SECRET alias binding.
	if cfg.Server.JobsSecret != "cron-secret" {
		t.Errorf("JobsSecret = %q, want cron-secret", cfg.Server.JobsSecret)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Telegram.BotToken = "123456:TEST-TOKEN"
		cfg.Server.JobsSecret = "secret"
		cfg.Database.Postgres.Host = "localhost"
		cfg.Database.Postgres.Database = "streakfarm"
		cfg.Database.Postgres.User = "streakfarm"
		cfg.Database.Redis.Host = "localhost"
		cfg.Rewards.CheckinCooldown = 20 * time.Hour
		cfg.Rewards.StreakGrace = 4 * time.Hour
		cfg.Boxes.PerDay = 3
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing bot token", mutate: func(c *Config) { c.Telegram.BotToken = "" }, wantErr: true},
		{name: "missing jobs secret", mutate: func(c *Config) { c.Server.JobsSecret = "" }, wantErr: true},
		{name: "missing postgres host", mutate: func(c *Config) { c.Database.Postgres.Host = "" }, wantErr: true},
		{name: "missing redis host", mutate: func(c *Config) { c.Database.Redis.Host = "" }, wantErr: true},
		{name: "zero cooldown", mutate: func(c *Config) { c.Rewards.CheckinCooldown = 0 }, wantErr: true},
		{name: "cooldown exceeds window", mutate: func(c *Config) { c.Rewards.CheckinCooldown = 30 * time.Hour }, wantErr: true},
		{name: "zero boxes per day", mutate: func(c *Config) { c.Boxes.PerDay = 0 }, wantErr: true},
		{
			name: "unsorted tiers",
			mutate: func(c *Config) {
				c.Rewards.MultiplierTiers = []MultiplierTier{
					{Days: 7, Multiplier: 1.25},
					{Days: 1, Multiplier: 1.0},
				}
			},
			wantErr: true,
		},
		{
			name: "non-positive tier multiplier",
			mutate: func(c *Config) {
				c.Rewards.MultiplierTiers = []MultiplierTier{{Days: 1, Multiplier: 0}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestMultiplierTiersOrDefault(t *testing.T) {
	var rewards RewardsConfig

	tiers := rewards.MultiplierTiersOrDefault()
	if len(tiers) != 8 {
		t.Fatalf("len(tiers) = %d, want 8 built-in tiers", len(tiers))
	}
	if tiers[0].Days != 1 || tiers[0].Multiplier != 1.0 {
		t.Errorf("tiers[0] = %+v, want day 1 at 1.0x", tiers[0])
	}
	if tiers[7].Days != 365 || tiers[7].Multiplier != 5.0 {
		t.Errorf("tiers[7] = %+v, want day 365 at 5.0x", tiers[7])
	}

	// Configured tiers come back sorted.
	rewards.MultiplierTiers = []MultiplierTier{
		{Days: 30, Multiplier: 2.0},
		{Days: 1, Multiplier: 1.0},
	}
	tiers = rewards.MultiplierTiersOrDefault()
	if tiers[0].Days != 1 || tiers[1].Days != 30 {
		t.Errorf("tiers = %+v, want sorted ascending", tiers)
	}
}

func TestSchedulerConfig_GetLocation(t *testing.T) {
	sched := SchedulerConfig{Timezone: "UTC"}
	if _, err := sched.GetLocation(); err != nil {
		t.Errorf("GetLocation(UTC) failed: %v", err)
	}

	sched.Timezone = "Not/AZone"
	if _, err := sched.GetLocation(); err == nil {
		t.Error("GetLocation(Not/AZone) expected error")
	}
}
