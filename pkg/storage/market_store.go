// Package storage persists market snapshots and their event logs to
// Pebble, the way the teacher's pkg/storage persists consensus blocks
// and account state: gob-encoded values under a flat key schema, no
// ORM, no schema migrations.
package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/market"
)

func init() {
	// Registered so gob can decode EventRecord.Payload back into its
	// concrete type (spec.md §6's typed event log).
	for _, v := range []any{
		market.CreateMarketLog{},
		market.ClaimSeatLog{},
		market.DepositLog{},
		market.WithdrawLog{},
		market.PlaceOrderLog{},
		market.FillLog{},
		market.CancelOrderLog{},
		market.LiquidateLog{},
		market.FundingCrankLog{},
	} {
		registerGob(v)
	}
}

// MarketStore is a Pebble-backed store for market snapshots and their
// append-only event logs (SPEC_FULL §C.2).
type MarketStore struct {
	db *pebble.DB
}

// Open opens (creating if absent) a Pebble database at path.
func Open(path string) (*MarketStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &MarketStore{db: db}, nil
}

func (s *MarketStore) Close() error { return s.db.Close() }

// SaveSnapshot persists a market's full state under its symbol,
// overwriting whatever was there before.
func (s *MarketStore) SaveSnapshot(snap market.Snapshot) error {
	data, err := encodeGob(snap)
	if err != nil {
		return fmt.Errorf("storage: encode snapshot: %w", err)
	}
	if err := s.db.Set(snapshotKey(snap.Symbol), data, pebble.Sync); err != nil {
		return fmt.Errorf("storage: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot loads a market's persisted state. The second return
// value is false if no snapshot has ever been saved for symbol.
func (s *MarketStore) LoadSnapshot(symbol string) (market.Snapshot, bool, error) {
	data, closer, err := s.db.Get(snapshotKey(symbol))
	if err == pebble.ErrNotFound {
		return market.Snapshot{}, false, nil
	}
	if err != nil {
		return market.Snapshot{}, false, fmt.Errorf("storage: load snapshot: %w", err)
	}
	defer closer.Close()

	var snap market.Snapshot
	if err := decodeGob(data, &snap); err != nil {
		return market.Snapshot{}, false, fmt.Errorf("storage: decode snapshot: %w", err)
	}
	return snap, true, nil
}

// EventRecord is one entry of a market's append-only event log.
type EventRecord struct {
	Discriminator [8]byte
	Name          string
	Sequence      uint64
	Payload       any
}

// AppendEvent writes one event record for symbol at sequence seq. Uses
// NoSync like the teacher's trade log (pkg/storage/pebble_store.go
// SaveTrade): event volume is high and replay only needs durability up
// to the last synced snapshot, not per-event fsync.
func (s *MarketStore) AppendEvent(symbol string, seq uint64, discriminator [8]byte, name string, payload any) error {
	rec := EventRecord{Discriminator: discriminator, Name: name, Sequence: seq, Payload: payload}
	data, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("storage: encode event: %w", err)
	}
	if err := s.db.Set(eventKey(symbol, seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("storage: append event: %w", err)
	}
	return nil
}

// LoadEvents replays every event recorded for symbol in sequence order,
// for crash recovery or inspection.
func (s *MarketStore) LoadEvents(symbol string) ([]EventRecord, error) {
	prefix := eventPrefix(symbol)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: iterate events: %w", err)
	}
	defer iter.Close()

	var records []EventRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec EventRecord
		if err := decodeGob(iter.Value(), &rec); err != nil {
			continue // skip malformed entries rather than abort the whole replay
		}
		records = append(records, rec)
	}
	return records, nil
}
