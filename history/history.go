// Package history persists finished dictation sessions. Writes are
// best-effort; the session never blocks on or surfaces a history failure.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"go.dicta.dev/dicta/internal/types"
	"go.dicta.dev/dicta/langdetect"
)

const (
	entryPrefix = "entry/"
	audioPrefix = "audio/"
)

// Store is a badger-backed session archive.
type Store struct {
	db *badger.DB
}

// Open opens or creates the history database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records one finished session. The transcript may be empty when the
// assistant consumed the raw audio directly. Audio is opus-compressed and
// stored under a separate key so listings stay cheap.
func (s *Store) Save(samples []float32, sampleRate int, transcript, postProcessed, promptUsed string) (types.HistoryEntry, error) {
	id := uuid.NewString()

	entry := types.HistoryEntry{
		ID:            id,
		CreatedAt:     time.Now().UnixMilli(),
		Transcript:    transcript,
		PostProcessed: postProcessed,
		PromptUsed:    promptUsed,
		SampleRate:    sampleRate,
	}
	if sampleRate > 0 {
		entry.DurationMS = int64(len(samples)) * 1000 / int64(sampleRate)
	}
	if code, _ := langdetect.Detect(transcript); code != "" {
		entry.Language = code
	}

	var audioData []byte
	if len(samples) > 0 {
		var err error
		audioData, err = compressAudio(samples, sampleRate)
		if err != nil {
			// Keep the entry; losing the recording is acceptable.
			slog.Warn("compress history audio", "err", err)
			audioData = nil
		} else {
			entry.AudioKey = audioPrefix + id
		}
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("marshal history entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(entryPrefix+id), entryJSON); err != nil {
			return err
		}
		if entry.AudioKey != "" {
			return txn.Set([]byte(entry.AudioKey), audioData)
		}
		return nil
	})
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("write history entry: %w", err)
	}
	return entry, nil
}

// List returns all entries, newest first.
func (s *Store) List() ([]types.HistoryEntry, error) {
	var entries []types.HistoryEntry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry types.HistoryEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt > entries[j].CreatedAt
	})
	return entries, nil
}

// Get returns one entry by id.
func (s *Store) Get(id string) (types.HistoryEntry, error) {
	var entry types.HistoryEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entryPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("get history entry %s: %w", id, err)
	}
	return entry, nil
}

// Audio returns the decoded recording for an entry, or nil when the entry
// has no stored audio.
func (s *Store) Audio(id string) ([]float32, error) {
	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if entry.AudioKey == "" {
		return nil, nil
	}

	var compressed []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entry.AudioKey))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read history audio %s: %w", id, err)
	}
	return decompressAudio(compressed, entry.SampleRate)
}

// Delete removes an entry and its audio.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(entryPrefix + id)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(audioPrefix + id)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete history entry %s: %w", id, err)
	}
	return nil
}

// IsNotFound reports whether err means a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}
