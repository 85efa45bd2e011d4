package streak

import (
	"errors"
	"testing"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/internal/models"
)

func testEngineConfig() EngineConfig {
	return EngineConfig{
		DailyPoints: 100,
		Cooldown:    20 * time.Hour,
		Grace:       4 * time.Hour,
		Tiers: []config.MultiplierTier{
			{Days: 1, Multiplier: 1.0},
			{Days: 7, Multiplier: 1.25},
			{Days: 14, Multiplier: 1.5},
			{Days: 30, Multiplier: 2.0},
			{Days: 50, Multiplier: 2.5},
			{Days: 100, Multiplier: 3.0},
			{Days: 200, Multiplier: 4.0},
			{Days: 365, Multiplier: 5.0},
		},
	}
}

func TestCheckIn_FirstEver(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	result, err := CheckIn(models.StreakState{}, now, testEngineConfig())
	if err != nil {
		t.Fatalf("CheckIn() failed: %v", err)
	}

	if result.NewState.CurrentStreak != 1 {
		t.Errorf("CurrentStreak = %d, want 1", result.NewState.CurrentStreak)
	}
	if result.NewState.LongestStreak != 1 {
		t.Errorf("LongestStreak = %d, want 1", result.NewState.LongestStreak)
	}
	if result.PointsAwarded != 100 {
		t.Errorf("PointsAwarded = %d, want 100", result.PointsAwarded)
	}
	if result.StreakContinued {
		t.Error("StreakContinued = true, want false for first check-in")
	}
	if result.NewState.LastCheckin == nil || !result.NewState.LastCheckin.Equal(now) {
		t.Errorf("LastCheckin = %v, want %v", result.NewState.LastCheckin, now)
	}
}

func TestCheckIn_WindowSemantics(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		elapsed       time.Duration
		startStreak   uint
		wantStreak    uint
		wantContinued bool
		wantErr       error
	}{
		{
			name:        "too soon just under cooldown",
			elapsed:     20*time.Hour - time.Second,
			startStreak: 5,
			wantErr:     ErrTooSoon,
		},
		{
			name:          "exactly at cooldown continues",
			elapsed:       20 * time.Hour,
			startStreak:   5,
			wantStreak:    6,
			wantContinued: true,
		},
		{
			name:          "nominal 24h continues",
			elapsed:       24 * time.Hour,
			startStreak:   5,
			wantStreak:    6,
			wantContinued: true,
		},
		{
			name:          "26h inside grace continues",
			elapsed:       26 * time.Hour,
			startStreak:   5,
			wantStreak:    6,
			wantContinued: true,
		},
		{
			name:          "exactly at window edge continues",
			elapsed:       28 * time.Hour,
			startStreak:   5,
			wantStreak:    6,
			wantContinued: true,
		},
		{
			name:          "just past window resets to 1",
			elapsed:       28*time.Hour + time.Second,
			startStreak:   5,
			wantStreak:    1,
			wantContinued: false,
		},
		{
			name:          "30h resets to 1",
			elapsed:       30 * time.Hour,
			startStreak:   42,
			wantStreak:    1,
			wantContinued: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := base
			state := models.StreakState{
				CurrentStreak: tt.startStreak,
				LongestStreak: tt.startStreak,
				LastCheckin:   &last,
			}

			result, err := CheckIn(state, base.Add(tt.elapsed), testEngineConfig())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CheckIn() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckIn() failed: %v", err)
			}

			if result.NewState.CurrentStreak != tt.wantStreak {
				t.Errorf("CurrentStreak = %d, want %d", result.NewState.CurrentStreak, tt.wantStreak)
			}
			if result.StreakContinued != tt.wantContinued {
				t.Errorf("StreakContinued = %v, want %v", result.StreakContinued, tt.wantContinued)
			}
		})
	}
}

func TestCheckIn_LongestStreakMonotonic(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	last := base

	// A reset must not shrink the longest streak.
	state := models.StreakState{
		CurrentStreak: 40,
		LongestStreak: 40,
		LastCheckin:   &last,
	}

	result, err := CheckIn(state, base.Add(72*time.Hour), testEngineConfig())
	if err != nil {
		t.Fatalf("CheckIn() failed: %v", err)
	}

	if result.NewState.CurrentStreak != 1 {
		t.Errorf("CurrentStreak = %d, want 1 after reset", result.NewState.CurrentStreak)
	}
	if result.NewState.LongestStreak != 40 {
		t.Errorf("LongestStreak = %d, want 40 preserved across reset", result.NewState.LongestStreak)
	}
}

func TestCheckIn_PointsScaleWithTier(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	last := base

	// Day 6 -> 7 crosses into the 1.25x tier.
	state := models.StreakState{
		CurrentStreak: 6,
		LongestStreak: 6,
		LastCheckin:   &last,
	}

	result, err := CheckIn(state, base.Add(24*time.Hour), testEngineConfig())
	if err != nil {
		t.Fatalf("CheckIn() failed: %v", err)
	}

	if result.Multiplier != 1.25 {
		t.Errorf("Multiplier = %v, want 1.25 on day 7", result.Multiplier)
	}
	if result.PointsAwarded != 125 {
		t.Errorf("PointsAwarded = %d, want 125", result.PointsAwarded)
	}
}

func TestMultiplierForStreak(t *testing.T) {
	tiers := testEngineConfig().Tiers

	tests := []struct {
		streak uint
		want   float64
	}{
		{0, 1.0},
		{1, 1.0},
		{6, 1.0},
		{7, 1.25},
		{13, 1.25},
		{14, 1.5},
		{29, 1.5},
		{30, 2.0},
		{49, 2.0},
		{50, 2.5},
		{99, 2.5},
		{100, 3.0},
		{199, 3.0},
		{200, 4.0},
		{364, 4.0},
		{365, 5.0},
		{1000, 5.0},
	}

	for _, tt := range tests {
		if got := MultiplierForStreak(tt.streak, tiers); got != tt.want {
			t.Errorf("MultiplierForStreak(%d) = %v, want %v", tt.streak, got, tt.want)
		}
	}
}

func TestMultiplierForStreak_EmptyTiers(t *testing.T) {
	if got := MultiplierForStreak(500, nil); got != 1.0 {
		t.Errorf("MultiplierForStreak with no tiers = %v, want 1.0", got)
	}
}

func TestNextCheckinAt(t *testing.T) {
	cfg := testEngineConfig()

	if got := NextCheckinAt(nil, cfg); got != nil {
		t.Errorf("NextCheckinAt(nil) = %v, want nil", got)
	}

	last := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	want := last.Add(20 * time.Hour)
	got := NextCheckinAt(&last, cfg)
	if got == nil || !got.Equal(want) {
		t.Errorf("NextCheckinAt = %v, want %v", got, want)
	}
}
