package gate

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const lastFetchKey = "tide/lastFetchUtc"

// BadgerStore keeps the last fetch time in a local badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a badger database in dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", dir, err)
	}
	return NewBadgerStore(db), nil
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) GetLastFetch(_ context.Context) (int64, error) {
	var lastFetch int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastFetchKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 4 {
				return fmt.Errorf("last fetch value has %d bytes", len(val))
			}
			lastFetch = int64(binary.BigEndian.Uint32(val))
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading last fetch time: %w", err)
	}
	return lastFetch, nil
}

// PutLastFetch stores the time as a uint32, the width of the on-device counter.
func (s *BadgerStore) PutLastFetch(_ context.Context, nowUTC int64) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(nowUTC))

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lastFetchKey), buf)
	})
	if err != nil {
		return fmt.Errorf("writing last fetch time: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
