package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stationops/assetcycle/pkg/api"
)

// RedisStore implements AssetStore and RecordStore on Redis.
// It uses a simple key structure:
//
//	<prefix>asset:<id>          => gob-encoded Asset
//	<prefix>disp:<id>           => gob-encoded DisposalRecord
//	<prefix>mnt:<id>            => gob-encoded MaintenanceRecord
//	<prefix>open:disp:<asset>   => id of the asset's open disposal, if any
//	<prefix>open:mnt:<asset>    => id of the asset's open maintenance, if any
//	<prefix>idx:disp            => SET of all disposal ids
//	<prefix>idx:mnt             => SET of all maintenance ids
//
// The conditional asset update runs under WATCH on the asset key, so a
// concurrent writer causes the transaction to fail and surfaces as
// ErrStaleVersion. List filtering decodes payloads and filters in memory;
// the index sets only bound the scan.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// Ensure RedisStore implements the interfaces.
var _ AssetStore = (*RedisStore)(nil)

var _ RecordStore = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "assetcycle:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "assetcycle:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) keyAsset(id string) string       { return s.prefix + "asset:" + id }
func (s *RedisStore) keyDisposal(id string) string    { return s.prefix + "disp:" + id }
func (s *RedisStore) keyMaintenance(id string) string { return s.prefix + "mnt:" + id }

func (s *RedisStore) keyOpenDisposal(assetID string) string    { return s.prefix + "open:disp:" + assetID }
func (s *RedisStore) keyOpenMaintenance(assetID string) string { return s.prefix + "open:mnt:" + assetID }

func (s *RedisStore) keyAllDisposals() string   { return s.prefix + "idx:disp" }
func (s *RedisStore) keyAllMaintenance() string { return s.prefix + "idx:mnt" }

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (s *RedisStore) SaveAsset(ctx context.Context, a *api.Asset) error {
	data, err := encodeGob(a)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.keyAsset(a.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateID
	}
	return nil
}

func (s *RedisStore) GetAsset(ctx context.Context, id string) (*api.Asset, error) {
	data, err := s.client.Get(ctx, s.keyAsset(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	var a api.Asset
	if err := decodeGob(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *RedisStore) ConditionalUpdateAsset(ctx context.Context, id string, expectedVersion int64, patch AssetPatch) (*api.Asset, error) {
	key := s.keyAsset(id)
	var updated *api.Asset

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrAssetNotFound
			}
			return err
		}
		var a api.Asset
		if err := decodeGob(data, &a); err != nil {
			return err
		}
		if a.Version != expectedVersion {
			return ErrStaleVersion
		}

		if patch.Status != nil {
			a.Status = *patch.Status
		}
		if patch.Active != nil {
			a.Active = *patch.Active
		}
		if patch.NextMaintenanceDate != nil {
			t := *patch.NextMaintenanceDate
			a.NextMaintenanceDate = &t
		}
		if patch.LastMaintenanceDate != nil {
			t := *patch.LastMaintenanceDate
			a.LastMaintenanceDate = &t
		}
		a.Version = expectedVersion + 1
		a.UpdatedAt = time.Now().UTC()

		out, err := encodeGob(&a)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &a
		return nil
	}

	if err := s.client.Watch(ctx, txn, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			// Someone else modified the asset between our read and write.
			return nil, ErrStaleVersion
		}
		return nil, err
	}
	return updated, nil
}

// syncOpenDisposal keeps the open-record pointer consistent with the
// record's status.
func (s *RedisStore) syncOpenDisposal(ctx context.Context, pipe redis.Pipeliner, rec *api.DisposalRecord) {
	if rec.Status.Terminal() {
		pipe.Del(ctx, s.keyOpenDisposal(rec.AssetID))
	} else {
		pipe.Set(ctx, s.keyOpenDisposal(rec.AssetID), rec.ID, 0)
	}
}

func (s *RedisStore) CreateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	data, err := encodeGob(rec)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.keyDisposal(rec.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateID
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAllDisposals(), rec.ID)
	// Creating a terminal record must not touch a pointer that may belong
	// to a different, still-open record for the same asset.
	if !rec.Status.Terminal() {
		pipe.Set(ctx, s.keyOpenDisposal(rec.AssetID), rec.ID, 0)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetDisposal(ctx context.Context, id string) (*api.DisposalRecord, error) {
	data, err := s.client.Get(ctx, s.keyDisposal(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	var rec api.DisposalRecord
	if err := decodeGob(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) UpdateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	exists, err := s.client.Exists(ctx, s.keyDisposal(rec.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrRecordNotFound
	}

	data, err := encodeGob(rec)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyDisposal(rec.ID), data, 0)
	s.syncOpenDisposal(ctx, pipe, rec)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) DeleteDisposal(ctx context.Context, id string) error {
	rec, err := s.GetDisposal(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyDisposal(id))
	pipe.SRem(ctx, s.keyAllDisposals(), id)
	// The pointer only mirrors open records; deleting a terminal record
	// must leave another record's pointer alone.
	if !rec.Status.Terminal() {
		pipe.Del(ctx, s.keyOpenDisposal(rec.AssetID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) OpenDisposal(ctx context.Context, assetID string) (*api.DisposalRecord, error) {
	id, err := s.client.Get(ctx, s.keyOpenDisposal(assetID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return s.GetDisposal(ctx, id)
}

func (s *RedisStore) ListDisposals(ctx context.Context, f DisposalFilter) ([]*api.DisposalRecord, error) {
	ids, err := s.client.SMembers(ctx, s.keyAllDisposals()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.DisposalRecord{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.DisposalRecord{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyDisposal(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var records []*api.DisposalRecord
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		var rec api.DisposalRecord
		if err := decodeGob(data, &rec); err != nil {
			return nil, err
		}
		if matchDisposal(&rec, f) {
			records = append(records, &rec)
		}
	}
	return records, nil
}

func (s *RedisStore) syncOpenMaintenance(ctx context.Context, pipe redis.Pipeliner, rec *api.MaintenanceRecord) {
	if rec.Status.Open() {
		pipe.Set(ctx, s.keyOpenMaintenance(rec.AssetID), rec.ID, 0)
	} else {
		pipe.Del(ctx, s.keyOpenMaintenance(rec.AssetID))
	}
}

func (s *RedisStore) CreateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	data, err := encodeGob(rec)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.keyMaintenance(rec.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateID
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAllMaintenance(), rec.ID)
	if rec.Status.Open() {
		pipe.Set(ctx, s.keyOpenMaintenance(rec.AssetID), rec.ID, 0)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetMaintenance(ctx context.Context, id string) (*api.MaintenanceRecord, error) {
	data, err := s.client.Get(ctx, s.keyMaintenance(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	var rec api.MaintenanceRecord
	if err := decodeGob(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) UpdateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	exists, err := s.client.Exists(ctx, s.keyMaintenance(rec.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrRecordNotFound
	}

	data, err := encodeGob(rec)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyMaintenance(rec.ID), data, 0)
	s.syncOpenMaintenance(ctx, pipe, rec)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) DeleteMaintenance(ctx context.Context, id string) error {
	rec, err := s.GetMaintenance(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyMaintenance(id))
	pipe.SRem(ctx, s.keyAllMaintenance(), id)
	if rec.Status.Open() {
		pipe.Del(ctx, s.keyOpenMaintenance(rec.AssetID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) OpenMaintenance(ctx context.Context, assetID string) (*api.MaintenanceRecord, error) {
	id, err := s.client.Get(ctx, s.keyOpenMaintenance(assetID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return s.GetMaintenance(ctx, id)
}

func (s *RedisStore) ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]*api.MaintenanceRecord, error) {
	ids, err := s.client.SMembers(ctx, s.keyAllMaintenance()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.MaintenanceRecord{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.MaintenanceRecord{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyMaintenance(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var records []*api.MaintenanceRecord
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		var rec api.MaintenanceRecord
		if err := decodeGob(data, &rec); err != nil {
			return nil, err
		}
		if matchMaintenance(&rec, f) {
			records = append(records, &rec)
		}
	}
	return records, nil
}
