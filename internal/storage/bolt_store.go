package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	BucketRuns = "runs"
)

var ErrNotFound = errors.New("history item not found")

type Store struct {
	db *bbolt.DB
}

// DefaultPath is ~/.burstbench/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".burstbench", "history.db"), nil
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save writes item under a time-ordered key so cursor order is run order.
func (s *Store) Save(item HistoryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		return b.Put(item.key(), data)
	})
}

// List returns saved runs, newest first. limit <= 0 means all.
func (s *Store) List(limit int) ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketRuns)).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			items = append(items, item)
			if limit > 0 && len(items) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Get looks a run up by its ID or any unique ID prefix.
func (s *Store) Get(id string) (*HistoryItem, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var matches []HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketRuns)).ForEach(func(k, v []byte) error {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			if strings.HasPrefix(item.ID, id) {
				matches = append(matches, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	for i := range matches {
		if matches[i].ID == id {
			return &matches[i], nil
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous id prefix %q matches %d runs", id, len(matches))
	}
}
