package boxes

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

// Rarity classification thresholds over a uniform draw in [0,1), checked in
// strict order: legendary, then rare, then common.
const (
	legendaryThreshold = 0.001
	rareThreshold      = 0.051
)

// Base point ranges per rarity band, inclusive.
const (
	commonMin    = 50
	commonMax    = 1000
	rareMin      = 5000
	rareMax      = 10000
	legendaryMin = 10000
	legendaryMax = 50000
)

// Generator rolls box rarity and base points. The random source is injected
// so classification is reproducible under a fixed seed.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator backed by the given source.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeededGenerator creates a generator from a plain seed.
func NewSeededGenerator(seed int64) *Generator {
	return NewGenerator(rand.NewSource(seed))
}

// Roll draws a rarity and a base point value within the rarity's band.
func (g *Generator) Roll() (rarity string, basePoints uint) {
	r := g.rng.Float64()
	switch {
	case r < legendaryThreshold:
		return models.BoxRarityLegendary, g.uniform(legendaryMin, legendaryMax)
	case r < rareThreshold:
		return models.BoxRarityRare, g.uniform(rareMin, rareMax)
	default:
		return models.BoxRarityCommon, g.uniform(commonMin, commonMax)
	}
}

// Generate produces one day's batch of boxes for a user. All boxes in the
// batch share generated_at and expire TTL later.
func (g *Generator) Generate(userID uint, count int, now time.Time, ttl time.Duration) []models.Box {
	batch := make([]models.Box, 0, count)
	for i := 0; i < count; i++ {
		rarity, base := g.Roll()
		batch = append(batch, models.Box{
			ID:          uuid.NewString(),
			UserID:      userID,
			Rarity:      rarity,
			BasePoints:  base,
			GeneratedAt: now,
			ExpiresAt:   now.Add(ttl),
		})
	}
	return batch
}

// uniform draws an integer uniformly from [min, max].
func (g *Generator) uniform(min, max int) uint {
	return uint(min + g.rng.Intn(max-min+1))
}
