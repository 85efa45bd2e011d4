package boxes

import (
	"math"
	"testing"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

func TestGenerator_Deterministic(t *testing.T) {
	a := NewSeededGenerator(42)
	b := NewSeededGenerator(42)

	for i := 0; i < 1000; i++ {
		rarityA, pointsA := a.Roll()
		rarityB, pointsB := b.Roll()
		if rarityA != rarityB || pointsA != pointsB {
			t.Fatalf("roll %d diverged: (%s,%d) vs (%s,%d)", i, rarityA, pointsA, rarityB, pointsB)
		}
	}
}

func TestGenerator_PointsWithinBands(t *testing.T) {
	g := NewSeededGenerator(7)

	bands := map[string][2]uint{
		models.BoxRarityCommon:    {50, 1000},
		models.BoxRarityRare:      {5000, 10000},
		models.BoxRarityLegendary: {10000, 50000},
	}

	for i := 0; i < 10000; i++ {
		rarity, points := g.Roll()
		band, ok := bands[rarity]
		if !ok {
			t.Fatalf("unknown rarity %q", rarity)
		}
		if points < band[0] || points > band[1] {
			t.Fatalf("%s roll %d outside band [%d, %d]", rarity, points, band[0], band[1])
		}
	}
}

func TestGenerator_RarityDistribution(t *testing.T) {
	g := NewSeededGenerator(1337)

	const n = 100000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		rarity, _ := g.Roll()
		counts[rarity]++
	}

	// Expected probabilities: legendary 0.001, rare 0.05, common 0.949.
	checks := []struct {
		rarity    string
		expected  float64
		tolerance float64
	}{
		{models.BoxRarityLegendary, 0.001, 0.0008},
		{models.BoxRarityRare, 0.05, 0.005},
		{models.BoxRarityCommon, 0.949, 0.005},
	}

	for _, c := range checks {
		got := float64(counts[c.rarity]) / n
		if math.Abs(got-c.expected) > c.tolerance {
			t.Errorf("%s frequency = %.5f, want %.5f ± %.5f", c.rarity, got, c.expected, c.tolerance)
		}
	}
}

func TestGenerator_Generate(t *testing.T) {
	g := NewSeededGenerator(99)
	now := time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC)

	batch := g.Generate(12, 3, now, 3*time.Hour)
	if len(batch) != 3 {
		t.Fatalf("len(batch) = %d, want 3", len(batch))
	}

	seen := map[string]bool{}
	for _, box := range batch {
		if box.UserID != 12 {
			t.Errorf("UserID = %d, want 12", box.UserID)
		}
		if box.ID == "" || seen[box.ID] {
			t.Errorf("box ID %q empty or duplicated", box.ID)
		}
		seen[box.ID] = true
		if !box.GeneratedAt.Equal(now) {
			t.Errorf("GeneratedAt = %v, want %v", box.GeneratedAt, now)
		}
		if !box.ExpiresAt.Equal(now.Add(3 * time.Hour)) {
			t.Errorf("ExpiresAt = %v, want %v", box.ExpiresAt, now.Add(3*time.Hour))
		}
		if box.OpenedAt != nil {
			t.Error("new box must not be opened")
		}
	}
}
