// Package history keeps a persistent audit log of every processed command
// in a local BadgerDB, newest-first.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/proxmox-nli/internal/nli"
)

// recordPrefix namespaces audit keys. The zero-padded nanosecond timestamp
// after it makes byte order equal chronological order.
const recordPrefix = "cmd:"

// defaultLimit is used when Recent is called without a positive limit.
const defaultLimit = 20

// Record is one processed command as persisted in the audit log.
type Record struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Timestamp  time.Time `json:"timestamp"`
	Input      string    `json:"input"`
	Intent     string    `json:"intent"`
	VMID       string    `json:"vmid,omitempty"`
	Node       string    `json:"node,omitempty"`
	Success    bool      `json:"success"`
	Reply      string    `json:"reply"`
	DurationMS int64     `json:"duration_ms"`
}

// Store is the BadgerDB-backed audit log.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the audit log under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store at %s: %w", dir, err)
	}

	return &Store{db: db}, nil
}

// Append writes one record. A missing ID or timestamp is filled in.
func (s *Store) Append(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	key := fmt.Sprintf("%s%020d:%s", recordPrefix, rec.Timestamp.UnixNano(), rec.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	if n <= 0 {
		n = defaultLimit
	}

	var records []Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 32
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recordPrefix)
		// 0xFF sorts after every timestamp digit, so a reverse scan
		// starts at the newest record.
		seek := append(append([]byte{}, prefix...), 0xFF)

		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return records, nil
}

// Record implements the session manager's audit hook, mapping one
// pipeline exchange to a persisted record.
func (s *Store) Record(sessionID string, ex nli.Exchange) error {
	rec := Record{
		SessionID:  sessionID,
		Input:      ex.Input,
		Intent:     ex.Intent.String(),
		Success:    ex.Result.Success,
		Reply:      ex.Reply,
		DurationMS: ex.Elapsed.Milliseconds(),
	}
	if vm, ok := ex.Entities.VMID(); ok {
		rec.VMID = vm
	}
	if node, ok := ex.Entities.Node(); ok {
		rec.Node = node
	}

	return s.Append(rec)
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
