// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store keeps imported datasets and fit results in a Badger key/value database,
// so a dataset is parsed once and fitted many times.
package store

import (
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

// Store is a key/value database. An empty path keeps everything in memory.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithInMemory(path == "").WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		logger.Error().Err(err).Str("trace", "store:Open").Str("path", path).Msg("open database")
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() (err error) {
	if s == nil {
		return new(nilStoreReceiverError)
	}
	if err = s.db.Close(); err != nil {
		s.logErr(err, "Close")
	}
	return
}

// Add writes all key/value pairs in a single transaction.
func (s *Store) Add(data map[string][]byte) (err error) {
	if s == nil {
		return new(nilStoreReceiverError)
	}

	err = s.db.Update(func(txn *badger.Txn) (err error) {
		for key, val := range data {
			if err = txn.Set([]byte(key), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logErr(err, "Add")
	}
	return
}

// AddBatch writes key/value pairs through a write batch, splitting them over as many
// transactions as needed. keys and values must have the same length.
func (s *Store) AddBatch(keys []string, values [][]byte) (err error) {
	if s == nil {
		return new(nilStoreReceiverError)
	}
	if len(keys) != len(values) {
		panic("store: keys and values length mismatch")
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i, key := range keys {
		if err = wb.Set([]byte(key), values[i]); err != nil {
			s.logErr(err, "AddBatch")
			return
		}
	}
	if err = wb.Flush(); err != nil {
		s.logErr(err, "AddBatch")
	}
	return
}

// Get returns the value stored under key, or an error wrapping badger.ErrKeyNotFound.
func (s *Store) Get(key string) (val []byte, err error) {
	if s == nil {
		return nil, new(nilStoreReceiverError)
	}

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logErr(err, "Get")
		}
		return nil, err
	}
	return val, nil
}

// KeyExists reports whether key is present.
func (s *Store) KeyExists(key string) (exists bool, err error) {
	if s == nil {
		return false, new(nilStoreReceiverError)
	}

	err = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		switch err {
		case nil:
			exists = true
		case badger.ErrKeyNotFound:
			return nil
		}
		return err
	})
	if err != nil {
		s.logErr(err, "KeyExists")
	}
	return
}

// GetWithPrefix returns the values of all keys starting with prefix, in key order.
func (s *Store) GetWithPrefix(prefix string) (values [][]byte, err error) {
	if s == nil {
		return nil, new(nilStoreReceiverError)
	}

	encodedPrefix := []byte(prefix)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		opts.Prefix = encodedPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(encodedPrefix); it.ValidForPrefix(encodedPrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, val)
		}
		return nil
	})
	if err != nil {
		s.logErr(err, "GetWithPrefix")
		return nil, err
	}
	return values, nil
}

// DelWithPrefix deletes all keys starting with prefix and returns how many were removed.
func (s *Store) DelWithPrefix(prefix string) (n int, err error) {
	if s == nil {
		return 0, new(nilStoreReceiverError)
	}

	var keys [][]byte
	encodedPrefix := []byte(prefix)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = encodedPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(encodedPrefix); it.ValidForPrefix(encodedPrefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		s.logErr(err, "DelWithPrefix")
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err = wb.Delete(key); err != nil {
			s.logErr(err, "DelWithPrefix")
			return 0, err
		}
	}
	if err = wb.Flush(); err != nil {
		s.logErr(err, "DelWithPrefix")
		return 0, err
	}
	return len(keys), nil
}

func (s *Store) logErr(err error, trace string) {
	s.logger.Error().Err(err).Str("trace", "store:"+trace).Msg("storage operation failed")
}

// Avoids a panic on a bad init in higher level packages.
type nilStoreReceiverError struct{}

func (e *nilStoreReceiverError) Error() string {
	return "store receiver cannot be nil"
}
