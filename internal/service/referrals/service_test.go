package referrals

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

type mockUserRepository struct {
	users     map[uint]*models.User
	byCode    map[string]*models.User
	referrals int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[uint]*models.User),
		byCode: make(map[string]*models.User),
	}
}

func (m *mockUserRepository) add(user *models.User) {
	m.users[user.ID] = user
	m.byCode[user.ReferralCode] = user
}

func (m *mockUserRepository) GetByID(id uint) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockUserRepository) GetByReferralCode(code string) (*models.User, error) {
	user, ok := m.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockUserRepository) CountReferrals(userID uint) (int64, error) {
	return m.referrals, nil
}

type mockBinder struct {
	err   error
	bound map[uint]uint
}

func (m *mockBinder) BindReferrer(userID, referrerID uint) error {
	if m.err != nil {
		return m.err
	}
	if m.bound == nil {
		m.bound = make(map[uint]uint)
	}
	m.bound[userID] = referrerID
	return nil
}

type refLedgerEntry struct {
	userID uint
	points int32
	source string
}

type mockLedger struct {
	entries []refLedgerEntry
}

func (m *mockLedger) Append(ctx context.Context, userID uint, points int32, source, reference string) error {
	m.entries = append(m.entries, refLedgerEntry{userID, points, source})
	return nil
}

func setupReferralService() (*Service, *mockUserRepository, *mockBinder, *mockLedger) {
	userRepo := newMockUserRepository()
	binder := &mockBinder{}
	ledger := &mockLedger{}
	svc := NewServiceWithInterfaces(userRepo, binder, ledger, 2500, 1000, logger.New("debug", "text", "stdout"))
	return svc, userRepo, binder, ledger
}

func TestService_Apply_PaysBothSides(t *testing.T) {
	svc, userRepo, binder, ledger := setupReferralService()
	userRepo.add(&models.User{ID: 1, ReferralCode: "ALICE"})
	userRepo.add(&models.User{ID: 2, ReferralCode: "BOB"})

	if err := svc.Apply(context.Background(), 2, "alice "); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if binder.bound[2] != 1 {
		t.Errorf("bound = %v, want user 2 -> referrer 1", binder.bound)
	}
	if len(ledger.entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(ledger.entries))
	}
	referrer, referee := ledger.entries[0], ledger.entries[1]
	if referrer.userID != 1 || referrer.points != 2500 || referrer.source != models.LedgerSourceReferral {
		t.Errorf("referrer entry = %+v, want 1/2500/referral", referrer)
	}
	if referee.userID != 2 || referee.points != 1000 {
		t.Errorf("referee entry = %+v, want 2/1000", referee)
	}
}

func TestService_Apply_Rejections(t *testing.T) {
	svc, userRepo, _, ledger := setupReferralService()
	referred := uint(1)
	userRepo.add(&models.User{ID: 1, ReferralCode: "ALICE"})
	userRepo.add(&models.User{ID: 2, ReferralCode: "BOB", ReferredBy: &referred})
	userRepo.add(&models.User{ID: 3, ReferralCode: "CAROL"})

	tests := []struct {
		name    string
		userID  uint
		code    string
		wantErr error
	}{
		{name: "self referral", userID: 1, code: "ALICE", wantErr: ErrSelfReferral},
		{name: "already referred", userID: 2, code: "ALICE", wantErr: ErrAlreadyReferred},
		{name: "unknown code", userID: 3, code: "NOPE", wantErr: ErrUnknownCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Apply(context.Background(), tt.userID, tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(ledger.entries) != 0 {
		t.Errorf("ledger entries = %d, want 0 after rejections", len(ledger.entries))
	}
}

func TestService_Apply_BindRaceMapsToAlreadyReferred(t *testing.T) {
	svc, userRepo, binder, ledger := setupReferralService()
	userRepo.add(&models.User{ID: 1, ReferralCode: "ALICE"})
	userRepo.add(&models.User{ID: 2, ReferralCode: "BOB"})
	binder.err = repository.ErrStaleState

	err := svc.Apply(context.Background(), 2, "ALICE")
	if !errors.Is(err, ErrAlreadyReferred) {
		t.Fatalf("Apply() error = %v, want ErrAlreadyReferred", err)
	}
	if len(ledger.entries) != 0 {
		t.Errorf("ledger entries = %d, want 0 after lost race", len(ledger.entries))
	}
}

func TestService_Stats(t *testing.T) {
	svc, userRepo, _, _ := setupReferralService()
	userRepo.add(&models.User{ID: 1, ReferralCode: "ALICE"})
	userRepo.referrals = 4

	code, count, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if code != "ALICE" || count != 4 {
		t.Errorf("Stats() = (%q, %d), want (ALICE, 4)", code, count)
	}
}

func TestNewCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewCode()
		if len(code) != 8 {
			t.Fatalf("len(NewCode()) = %d, want 8", len(code))
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("unique codes = %d out of 100, generator looks degenerate", len(seen))
	}
}
