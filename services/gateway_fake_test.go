package services

import (
	"context"
	"fmt"
	"sync"

	"skill-progress-system/models"
	"skill-progress-system/repository"
)

// fakeStore is an in-memory stand-in for the persistence gateway with the
// same duplicate/conflict semantics as the Postgres implementation, plus
// hooks for injecting races and infrastructure failures.
type fakeStore struct {
	mu sync.Mutex

	types        []models.AchievementType
	stats        map[string]*models.UserStats       // by external user id
	achievements map[string]*models.UserAchievement // by userID+"/"+typeID
	items        map[string]*models.StoreItem       // by item id
	owned        map[string]*models.ItemOwnership   // by userID+"/"+itemID

	catalogErr error
	statsErr   error

	// conflictUpdates makes the next N progress updates fail with ErrConflict
	conflictUpdates int
	// staleOwnershipReads makes the next N ownership lookups miss even when
	// the row exists, simulating a read racing an uncommitted insert
	staleOwnershipReads int
	// afterListAchievements runs once after the next ListUserAchievements,
	// with the store lock held, to interleave a concurrent writer
	afterListAchievements func(*fakeStore)

	updateCalls int
	insertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stats:        map[string]*models.UserStats{},
		achievements: map[string]*models.UserAchievement{},
		items:        map[string]*models.StoreItem{},
		owned:        map[string]*models.ItemOwnership{},
	}
}

func (s *fakeStore) addType(id string, kind models.AchievementKind, target int64) {
	s.types = append(s.types, models.AchievementType{
		ID: id, Code: id, Name: id, Kind: kind, Target: target,
	})
}

func (s *fakeStore) addStats(userID string, stats models.UserStats) {
	stats.ExternalUserID = userID
	if stats.ID == "" {
		stats.ID = "stats-" + userID
	}
	if stats.Level == 0 {
		stats.Level = 1
	}
	s.stats[userID] = &stats
}

func (s *fakeStore) addItem(id string, price int64, status models.StoreItemStatus) {
	s.items[id] = &models.StoreItem{ID: id, Code: id, Name: id, Price: price, Status: status}
}

func (s *fakeStore) achievementFor(userID, typeID string) *models.UserAchievement {
	return s.achievements[userID+"/"+typeID]
}

func (s *fakeStore) putAchievement(rec models.UserAchievement) {
	cp := rec
	s.achievements[rec.ExternalUserID+"/"+rec.AchievementTypeID] = &cp
}

type storeSnapshot struct {
	stats        map[string]*models.UserStats
	achievements map[string]*models.UserAchievement
	owned        map[string]*models.ItemOwnership
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		stats:        make(map[string]*models.UserStats, len(s.stats)),
		achievements: make(map[string]*models.UserAchievement, len(s.achievements)),
		owned:        make(map[string]*models.ItemOwnership, len(s.owned)),
	}
	for k, v := range s.stats {
		cp := *v
		snap.stats[k] = &cp
	}
	for k, v := range s.achievements {
		cp := *v
		snap.achievements[k] = &cp
	}
	for k, v := range s.owned {
		cp := *v
		snap.owned[k] = &cp
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.stats = snap.stats
	s.achievements = snap.achievements
	s.owned = snap.owned
}

// fakeGateway serializes transactions with a mutex and rolls mutations back
// when the callback errors, mirroring real commit/rollback semantics.
type fakeGateway struct {
	store *fakeStore
}

func newFakeGateway(store *fakeStore) *fakeGateway {
	return &fakeGateway{store: store}
}

func (g *fakeGateway) RunInTransaction(ctx context.Context, fn func(repository.Tx) error) error {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()

	snap := g.store.snapshot()
	if err := fn(&fakeTx{s: g.store}); err != nil {
		g.store.restore(snap)
		return err
	}
	return nil
}

type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) GetUserCounters(userID string) (models.UserCounters, error) {
	if t.s.statsErr != nil {
		return models.UserCounters{}, t.s.statsErr
	}
	stats, ok := t.s.stats[userID]
	if !ok {
		return models.UserCounters{}, repository.ErrNotFound
	}
	return stats.Counters(), nil
}

func (t *fakeTx) GetUserStatsForUpdate(userID string) (*models.UserStats, error) {
	if t.s.statsErr != nil {
		return nil, t.s.statsErr
	}
	stats, ok := t.s.stats[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *stats
	return &cp, nil
}

func (t *fakeTx) CreateUserStats(stats *models.UserStats) error {
	if _, ok := t.s.stats[stats.ExternalUserID]; ok {
		return repository.ErrDuplicateKey
	}
	cp := *stats
	t.s.stats[stats.ExternalUserID] = &cp
	return nil
}

func (t *fakeTx) SaveUserStats(stats *models.UserStats) error {
	cp := *stats
	t.s.stats[stats.ExternalUserID] = &cp
	return nil
}

func (t *fakeTx) DeductRewardBalance(userID string, amount int64) (int64, error) {
	stats, ok := t.s.stats[userID]
	if !ok || stats.RewardBalance < amount {
		return 0, fmt.Errorf("%w: balance deduction matched no row for user %s", repository.ErrConflict, userID)
	}
	stats.RewardBalance -= amount
	return stats.RewardBalance, nil
}

func (t *fakeTx) ListAchievementTypes() ([]models.AchievementType, error) {
	if t.s.catalogErr != nil {
		return nil, t.s.catalogErr
	}
	out := make([]models.AchievementType, len(t.s.types))
	copy(out, t.s.types)
	return out, nil
}

func (t *fakeTx) ListUserAchievements(userID string) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	for _, rec := range t.s.achievements {
		if rec.ExternalUserID == userID {
			out = append(out, *rec)
		}
	}
	if hook := t.s.afterListAchievements; hook != nil {
		t.s.afterListAchievements = nil
		hook(t.s)
	}
	return out, nil
}

func (t *fakeTx) InsertUserAchievement(rec *models.UserAchievement) error {
	t.s.insertCalls++
	key := rec.ExternalUserID + "/" + rec.AchievementTypeID
	if _, ok := t.s.achievements[key]; ok {
		return repository.ErrDuplicateKey
	}
	cp := *rec
	t.s.achievements[key] = &cp
	return nil
}

func (t *fakeTx) UpdateUserAchievementProgress(rec *models.UserAchievement) error {
	t.s.updateCalls++
	if t.s.conflictUpdates > 0 {
		t.s.conflictUpdates--
		return fmt.Errorf("%w: user achievement %s", repository.ErrConflict, rec.ID)
	}
	for key, existing := range t.s.achievements {
		if existing.ID == rec.ID {
			if existing.Status != models.AchievementStatusInProgress {
				return fmt.Errorf("%w: user achievement %s", repository.ErrConflict, rec.ID)
			}
			cp := *rec
			t.s.achievements[key] = &cp
			return nil
		}
	}
	return fmt.Errorf("%w: user achievement %s", repository.ErrConflict, rec.ID)
}

func (t *fakeTx) GetStoreItem(itemID string) (*models.StoreItem, error) {
	item, ok := t.s.items[itemID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (t *fakeTx) GetOwnership(userID, itemID string) (*models.ItemOwnership, error) {
	if t.s.staleOwnershipReads > 0 {
		t.s.staleOwnershipReads--
		return nil, repository.ErrNotFound
	}
	own, ok := t.s.owned[userID+"/"+itemID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *own
	return &cp, nil
}

func (t *fakeTx) InsertOwnership(own *models.ItemOwnership) error {
	key := own.ExternalUserID + "/" + own.StoreItemID
	if _, ok := t.s.owned[key]; ok {
		return repository.ErrDuplicateKey
	}
	cp := *own
	t.s.owned[key] = &cp
	return nil
}
