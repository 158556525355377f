// Package memory is a mutex-guarded, in-process implementation of the farm data store. It backs
// STORAGE_DRIVER=memory for local runs and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/herdlog/internal/domain/models"
)

// Store holds every farm table in maps keyed by id.
type Store struct {
	mu        sync.Mutex
	animals   map[string]models.Animal
	inventory map[string]models.FeedInventoryEntry
	farms     map[string]models.FarmSettings
	members   []models.Membership
	records   map[models.ActivityKind][]models.ActivityRecord
	approvals map[string]models.PendingApproval

	// failKinds makes InsertActivityBatches fail when a batch has one of the listed kinds.
	failKinds map[models.ActivityKind]error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		animals:   make(map[string]models.Animal),
		inventory: make(map[string]models.FeedInventoryEntry),
		farms:     make(map[string]models.FarmSettings),
		records:   make(map[models.ActivityKind][]models.ActivityRecord),
		approvals: make(map[string]models.PendingApproval),
		failKinds: make(map[models.ActivityKind]error),
	}
}

// PutAnimal inserts or replaces an animal.
func (s *Store) PutAnimal(a models.Animal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animals[a.ID] = a
}

// PutFeedEntry inserts or replaces an inventory lot.
func (s *Store) PutFeedEntry(e models.FeedInventoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[e.ID] = e
}

// PutFarm inserts or replaces farm settings.
func (s *Store) PutFarm(f models.FarmSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.farms[f.ID] = f
}

// PutMember adds a farm membership.
func (s *Store) PutMember(m models.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append(s.members, m)
}

// FailInserts makes subsequent commits touching kind fail with err (nil clears it).
func (s *Store) FailInserts(kind models.ActivityKind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failKinds, kind)
		return
	}
	s.failKinds[kind] = err
}

// ListAnimals returns the farm's animals ordered by id.
func (s *Store) ListAnimals(_ context.Context, farmID string) ([]models.Animal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Animal
	for _, a := range s.animals {
		if a.FarmID == farmID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListFeedInventory returns the farm's inventory lots oldest first.
func (s *Store) ListFeedInventory(_ context.Context, farmID string) ([]models.FeedInventoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FeedInventoryEntry
	for _, e := range s.inventory {
		if e.FarmID == farmID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetFarmSettings returns the farm settings or an empty settings value for unknown farms.
func (s *Store) GetFarmSettings(_ context.Context, farmID string) (models.FarmSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.farms[farmID]; ok {
		return f, nil
	}
	return models.FarmSettings{ID: farmID}, nil
}

// GetMembership looks up a user's membership in a farm.
func (s *Store) GetMembership(_ context.Context, farmID, userID string) (models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.FarmID == farmID && m.UserID == userID {
			return m, nil
		}
	}
	return models.Membership{}, models.ErrNotFound
}

// FindMemberByPhone maps a WhatsApp sender to a membership.
func (s *Store) FindMemberByPhone(_ context.Context, phone string) (models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.Phone != "" && m.Phone == phone {
			return m, nil
		}
	}
	return models.Membership{}, models.ErrNotFound
}

// InsertActivityBatches appends every batch, or none of them when any kind is set to fail.
func (s *Store) InsertActivityBatches(_ context.Context, batches []models.ActivityBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range batches {
		if err := s.failKinds[b.Kind]; err != nil {
			return fmt.Errorf("insert %s records: %w", b.Kind, err)
		}
	}
	for _, b := range batches {
		s.records[b.Kind] = append(s.records[b.Kind], b.Records...)
	}
	return nil
}

// ActivityRecords returns a copy of the committed records of kind for a farm.
func (s *Store) ActivityRecords(farmID string, kind models.ActivityKind) []models.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivityRecord
	for _, r := range s.records[kind] {
		if r.FarmID == farmID {
			out = append(out, r)
		}
	}
	return out
}

// CountActivities counts a farm's records of kind dated within [start, end] and sums their kilograms.
func (s *Store) CountActivities(_ context.Context, farmID string, kind models.ActivityKind, start, end time.Time) (int, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	var kg float64
	for _, r := range s.records[kind] {
		if r.FarmID != farmID || r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		count++
		kg += r.QuantityKg
	}
	return count, kg, nil
}

// InsertApproval queues a pending approval.
func (s *Store) InsertApproval(_ context.Context, a models.PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.approvals[a.ID]; exists {
		return fmt.Errorf("approval %s already exists", a.ID)
	}
	s.approvals[a.ID] = a
	return nil
}

// GetApproval returns a farm's approval by id.
func (s *Store) GetApproval(_ context.Context, farmID, id string) (models.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals[id]
	if !ok || a.FarmID != farmID {
		return models.PendingApproval{}, models.ErrNotFound
	}
	return a, nil
}

// TransitionApproval moves an approval from one status to another only if it is still in from.
// A nil decidedAt clears the decision fields.
func (s *Store) TransitionApproval(_ context.Context, id string, from, to models.ApprovalStatus, decidedBy, reason string, decidedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	a.DecidedBy = decidedBy
	a.Reason = reason
	a.DecidedAt = decidedAt
	s.approvals[id] = a
	return true, nil
}

// ListApprovals returns a farm's approvals in status (all when empty), oldest first.
func (s *Store) ListApprovals(_ context.Context, farmID string, status models.ApprovalStatus) ([]models.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PendingApproval
	for _, a := range s.approvals {
		if a.FarmID != farmID || (status != "" && a.Status != status) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListDueApprovals returns pending approvals whose deadline is at or before now, across farms.
func (s *Store) ListDueApprovals(_ context.Context, now time.Time, limit int) ([]models.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PendingApproval
	for _, a := range s.approvals {
		if a.Status == models.ApprovalPending && !a.Deadline.After(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
