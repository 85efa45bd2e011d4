package boxes

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// Mocks.

type mockBoxRepository struct {
	boxes   map[string]*models.Box
	markErr error
}

func newMockBoxRepository() *mockBoxRepository {
	return &mockBoxRepository{boxes: make(map[string]*models.Box)}
}

func (m *mockBoxRepository) CreateBatch(batch []models.Box) error {
	for i := range batch {
		box := batch[i]
		m.boxes[box.ID] = &box
	}
	return nil
}

func (m *mockBoxRepository) GetByID(id string) (*models.Box, error) {
	box, ok := m.boxes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *box
	return &copied, nil
}

func (m *mockBoxRepository) ListForUser(userID uint, since time.Time) ([]models.Box, error) {
	var out []models.Box
	for _, box := range m.boxes {
		if box.UserID == userID && !box.GeneratedAt.Before(since) {
			out = append(out, *box)
		}
	}
	return out, nil
}

func (m *mockBoxRepository) CountGeneratedSince(userID uint, since time.Time) (int64, error) {
	var count int64
	for _, box := range m.boxes {
		if box.UserID == userID && !box.GeneratedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockBoxRepository) MarkOpened(boxID string, openedAt time.Time, multiplier float64, finalPoints uint) error {
	if m.markErr != nil {
		return m.markErr
	}
	box, ok := m.boxes[boxID]
	if !ok || box.OpenedAt != nil || box.Expired {
		return repository.ErrBoxConflict
	}
	box.OpenedAt = &openedAt
	box.MultiplierApplied = multiplier
	box.FinalPoints = finalPoints
	return nil
}

func (m *mockBoxRepository) ExpireDue(now time.Time) (int64, error) {
	var swept int64
	for _, box := range m.boxes {
		if box.OpenedAt == nil && !box.Expired && box.ExpiresAt.Before(now) {
			box.Expired = true
			swept++
		}
	}
	return swept, nil
}

type mockUserSource struct {
	users map[uint]*models.User
}

func (m *mockUserSource) GetByID(id uint) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockUserSource) ListIDs() ([]uint, error) {
	ids := make([]uint, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockMultiplierSource struct {
	bonus float64
}

func (m *mockMultiplierSource) MultiplierFor(ctx context.Context, userID uint) (float64, error) {
	return m.bonus, nil
}

type boxLedgerEntry struct {
	userID    uint
	points    int32
	source    string
	reference string
}

type mockBoxLedger struct {
	entries []boxLedgerEntry
}

func (m *mockBoxLedger) Append(ctx context.Context, userID uint, points int32, source, reference string) error {
	m.entries = append(m.entries, boxLedgerEntry{userID, points, source, reference})
	return nil
}

func defaultTiers() []config.MultiplierTier {
	return []config.MultiplierTier{
		{Days: 1, Multiplier: 1.0},
		{Days: 7, Multiplier: 1.25},
		{Days: 30, Multiplier: 2.0},
	}
}

func setupBoxService() (*Service, *mockBoxRepository, *mockUserSource, *mockMultiplierSource, *mockBoxLedger) {
	boxRepo := newMockBoxRepository()
	userSource := &mockUserSource{users: make(map[uint]*models.User)}
	badges := &mockMultiplierSource{}
	ledger := &mockBoxLedger{}
	log := logger.New("debug", "text", "stdout")

	svc := NewServiceWithInterfaces(
		boxRepo, userSource, badges, ledger,
		NewSeededGenerator(1), 3, 3*time.Hour, defaultTiers(), log,
	)
	return svc, boxRepo, userSource, badges, ledger
}

func TestService_Open_AdditiveMultiplier(t *testing.T) {
	svc, boxRepo, userSource, badges, ledger := setupBoxService()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	userSource.users[1] = &models.User{ID: 1, CurrentStreak: 10}
	badges.bonus = 0.25

	boxRepo.boxes["b1"] = &models.Box{
		ID: "b1", UserID: 1, Rarity: models.BoxRarityCommon, BasePoints: 200,
		GeneratedAt: now, ExpiresAt: now.Add(3 * time.Hour),
	}

	opened, err := svc.Open(context.Background(), 1, "b1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	// Streak 10 -> 1.25x tier, plus 0.25 badge bonus = 1.5x.
	if opened.MultiplierApplied != 1.5 {
		t.Errorf("MultiplierApplied = %v, want 1.5", opened.MultiplierApplied)
	}
	if opened.FinalPoints != 300 {
		t.Errorf("FinalPoints = %d, want 300", opened.FinalPoints)
	}

	if len(ledger.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(ledger.entries))
	}
	entry := ledger.entries[0]
	if entry.source != models.LedgerSourceBox || entry.points != 300 || entry.reference != "b1" {
		t.Errorf("entry = %+v, want box/300/b1", entry)
	}
}

func TestService_Open_WrongOwner(t *testing.T) {
	svc, boxRepo, userSource, _, _ := setupBoxService()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	userSource.users[2] = &models.User{ID: 2}
	boxRepo.boxes["b1"] = &models.Box{
		ID: "b1", UserID: 1, BasePoints: 200,
		GeneratedAt: now, ExpiresAt: now.Add(3 * time.Hour),
	}

	_, err := svc.Open(context.Background(), 2, "b1", now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open() error = %v, want ErrNotFound for foreign box", err)
	}
}

func TestService_Open_RaceReportsTerminalState(t *testing.T) {
	svc, boxRepo, userSource, _, ledger := setupBoxService()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	userSource.users[1] = &models.User{ID: 1, CurrentStreak: 1}

	openedAt := now.Add(time.Minute)
	boxRepo.boxes["b1"] = &models.Box{
		ID: "b1", UserID: 1, BasePoints: 200,
		GeneratedAt: now, ExpiresAt: now.Add(3 * time.Hour),
	}

	// Lose the race: the snapshot looks open but the conditional update
	// fails. Reload still shows an unopened box, so the sweep must have won.
	boxRepo.markErr = repository.ErrBoxConflict

	_, err := svc.Open(context.Background(), 1, "b1", now.Add(2*time.Minute))
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("Open() error = %v, want ErrExpired", err)
	}

	// Same race, but the reload finds a concurrent open.
	boxRepo.boxes["b1"].OpenedAt = &openedAt
	_, err = svc.Open(context.Background(), 1, "b1", now.Add(2*time.Minute))
	if !errors.Is(err, ErrAlreadyOpened) {
		t.Fatalf("Open() error = %v, want ErrAlreadyOpened", err)
	}

	if len(ledger.entries) != 0 {
		t.Errorf("ledger entries = %d, want 0 after failed opens", len(ledger.entries))
	}
}

func TestService_GenerateDaily_Idempotent(t *testing.T) {
	svc, boxRepo, userSource, _, _ := setupBoxService()

	now := time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC)
	userSource.users[1] = &models.User{ID: 1}
	userSource.users[2] = &models.User{ID: 2}

	generated, err := svc.GenerateDaily(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateDaily() failed: %v", err)
	}
	if generated != 6 {
		t.Errorf("generated = %d, want 6 (3 per user)", generated)
	}

	// Rerun the same day: nothing new.
	generated, err = svc.GenerateDaily(context.Background(), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GenerateDaily() rerun failed: %v", err)
	}
	if generated != 0 {
		t.Errorf("rerun generated = %d, want 0", generated)
	}

	if len(boxRepo.boxes) != 6 {
		t.Errorf("stored boxes = %d, want 6", len(boxRepo.boxes))
	}
}

func TestService_GrantBonusBox_OutsideDailyCap(t *testing.T) {
	svc, boxRepo, userSource, _, _ := setupBoxService()

	now := time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC)
	userSource.users[1] = &models.User{ID: 1}

	if _, err := svc.GenerateDaily(context.Background(), now); err != nil {
		t.Fatalf("GenerateDaily() failed: %v", err)
	}

	box, err := svc.GrantBonusBox(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("GrantBonusBox() failed: %v", err)
	}
	if box.UserID != 1 {
		t.Errorf("bonus box UserID = %d, want 1", box.UserID)
	}
	if len(boxRepo.boxes) != 4 {
		t.Errorf("stored boxes = %d, want 4", len(boxRepo.boxes))
	}
}

func TestService_ExpireDue(t *testing.T) {
	svc, boxRepo, _, _, _ := setupBoxService()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	boxRepo.boxes["old"] = &models.Box{
		ID: "old", UserID: 1, BasePoints: 100,
		GeneratedAt: now.Add(-5 * time.Hour), ExpiresAt: now.Add(-2 * time.Hour),
	}
	boxRepo.boxes["live"] = &models.Box{
		ID: "live", UserID: 1, BasePoints: 100,
		GeneratedAt: now.Add(-time.Hour), ExpiresAt: now.Add(2 * time.Hour),
	}

	expired, err := svc.ExpireDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ExpireDue() failed: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}
	if !boxRepo.boxes["old"].Expired || boxRepo.boxes["live"].Expired {
		t.Error("wrong boxes swept")
	}
}
