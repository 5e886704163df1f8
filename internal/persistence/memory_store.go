package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/stationops/assetcycle/pkg/api"
)

// InMemoryStore is a goroutine-safe implementation of AssetStore and
// RecordStore backed by maps. It is the default backend for tests and
// non-durable embedding.
//
// All reads and writes copy, so callers can never alias stored state.
// ConditionalUpdateAsset holds the write lock across its read-check-write,
// which is what makes the version CAS linearizable for a single asset.
type InMemoryStore struct {
	mu          sync.RWMutex
	assets      map[string]*api.Asset
	disposals   map[string]*api.DisposalRecord
	maintenance map[string]*api.MaintenanceRecord
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		assets:      make(map[string]*api.Asset),
		disposals:   make(map[string]*api.DisposalRecord),
		maintenance: make(map[string]*api.MaintenanceRecord),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ AssetStore = (*InMemoryStore)(nil)

var _ RecordStore = (*InMemoryStore)(nil)

func copyAsset(a *api.Asset) *api.Asset {
	c := *a
	if a.NextMaintenanceDate != nil {
		t := *a.NextMaintenanceDate
		c.NextMaintenanceDate = &t
	}
	if a.LastMaintenanceDate != nil {
		t := *a.LastMaintenanceDate
		c.LastMaintenanceDate = &t
	}
	return &c
}

func copyDisposal(r *api.DisposalRecord) *api.DisposalRecord {
	c := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func copyMaintenance(r *api.MaintenanceRecord) *api.MaintenanceRecord {
	c := *r
	if r.CompletedDate != nil {
		t := *r.CompletedDate
		c.CompletedDate = &t
	}
	if r.NextMaintenanceDate != nil {
		t := *r.NextMaintenanceDate
		c.NextMaintenanceDate = &t
	}
	return &c
}

func (s *InMemoryStore) SaveAsset(ctx context.Context, a *api.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[a.ID]; ok {
		return ErrDuplicateID
	}
	s.assets[a.ID] = copyAsset(a)
	return nil
}

func (s *InMemoryStore) GetAsset(ctx context.Context, id string) (*api.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return copyAsset(a), nil
}

func (s *InMemoryStore) ConditionalUpdateAsset(ctx context.Context, id string, expectedVersion int64, patch AssetPatch) (*api.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	if a.Version != expectedVersion {
		return nil, ErrStaleVersion
	}

	updated := copyAsset(a)
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.Active != nil {
		updated.Active = *patch.Active
	}
	if patch.NextMaintenanceDate != nil {
		t := *patch.NextMaintenanceDate
		updated.NextMaintenanceDate = &t
	}
	if patch.LastMaintenanceDate != nil {
		t := *patch.LastMaintenanceDate
		updated.LastMaintenanceDate = &t
	}
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = time.Now().UTC()

	s.assets[id] = updated
	return copyAsset(updated), nil
}

func (s *InMemoryStore) CreateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disposals[rec.ID]; ok {
		return ErrDuplicateID
	}
	s.disposals[rec.ID] = copyDisposal(rec)
	return nil
}

func (s *InMemoryStore) GetDisposal(ctx context.Context, id string) (*api.DisposalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.disposals[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return copyDisposal(r), nil
}

func (s *InMemoryStore) UpdateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disposals[rec.ID]; !ok {
		return ErrRecordNotFound
	}
	s.disposals[rec.ID] = copyDisposal(rec)
	return nil
}

func (s *InMemoryStore) DeleteDisposal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disposals[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.disposals, id)
	return nil
}

func (s *InMemoryStore) OpenDisposal(ctx context.Context, assetID string) (*api.DisposalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.disposals {
		if r.AssetID == assetID && !r.Status.Terminal() {
			return copyDisposal(r), nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *InMemoryStore) ListDisposals(ctx context.Context, f DisposalFilter) ([]*api.DisposalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.DisposalRecord
	for _, r := range s.disposals {
		if matchDisposal(r, f) {
			result = append(result, copyDisposal(r))
		}
	}
	return result, nil
}

func (s *InMemoryStore) CreateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maintenance[rec.ID]; ok {
		return ErrDuplicateID
	}
	s.maintenance[rec.ID] = copyMaintenance(rec)
	return nil
}

func (s *InMemoryStore) GetMaintenance(ctx context.Context, id string) (*api.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.maintenance[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return copyMaintenance(r), nil
}

func (s *InMemoryStore) UpdateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maintenance[rec.ID]; !ok {
		return ErrRecordNotFound
	}
	s.maintenance[rec.ID] = copyMaintenance(rec)
	return nil
}

func (s *InMemoryStore) DeleteMaintenance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maintenance[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.maintenance, id)
	return nil
}

func (s *InMemoryStore) OpenMaintenance(ctx context.Context, assetID string) (*api.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.maintenance {
		if r.AssetID == assetID && r.Status.Open() {
			return copyMaintenance(r), nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *InMemoryStore) ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]*api.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.MaintenanceRecord
	for _, r := range s.maintenance {
		if matchMaintenance(r, f) {
			result = append(result, copyMaintenance(r))
		}
	}
	return result, nil
}
