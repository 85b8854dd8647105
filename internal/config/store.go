package config

import (
	"encoding/json"
	"log"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyEngineSettings = "engine_settings"
	keyBookStats      = "book_stats"
)

// EngineSettings mirrors the UCI options an engine-hosting GUI can set,
// persisted so a restarted process resumes with the same tuning instead of
// falling back to defaults.
type EngineSettings struct {
	HashMB       int    `json:"hash_mb"`
	Threads      int    `json:"threads"`
	MoveOverhead int    `json:"move_overhead_ms"`
	UseNNUE      bool   `json:"use_nnue"`
	EvalFile     string `json:"eval_file"`
	OwnBook      bool   `json:"own_book"`
	BookPath     string `json:"book_path"`
}

// DefaultEngineSettings returns the settings a fresh install starts with.
func DefaultEngineSettings() *EngineSettings {
	return &EngineSettings{
		HashMB:       64,
		Threads:      1,
		MoveOverhead: 30,
	}
}

// BookStats tracks how often the opening book has supplied a move versus
// the engine falling through to search, the learning signal spec §6 asks
// the config store to retain across restarts.
type BookStats struct {
	ProbesHit  int `json:"probes_hit"`
	ProbesMiss int `json:"probes_miss"`
}

// HitRate returns the book's probe hit rate as a percentage.
func (s *BookStats) HitRate() float64 {
	total := s.ProbesHit + s.ProbesMiss
	if total == 0 {
		return 0
	}
	return float64(s.ProbesHit) / float64(total) * 100
}

// Store wraps an embedded key-value database for engine-session config and
// learning-state persistence. A nil *Store is safe to use: every method
// degrades to "no persistence" rather than panicking, since this store
// backs an optimization, never a hard search dependency.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the config store at the platform data
// directory. Callers that can't get a usable store should fall back to
// DefaultEngineSettings and proceed without persistence.
func Open() (*Store, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadEngineSettings loads persisted settings, or defaults if none are
// stored yet or the store is unavailable.
func (s *Store) LoadEngineSettings() *EngineSettings {
	settings := DefaultEngineSettings()
	if s == nil || s.db == nil {
		return settings
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyEngineSettings))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, settings)
		})
	})
	if err != nil {
		log.Printf("[config] failed to load engine settings, using defaults: %v", err)
		return DefaultEngineSettings()
	}

	return settings
}

// SaveEngineSettings persists settings. Failures are logged, not returned,
// since config persistence is best-effort.
func (s *Store) SaveEngineSettings(settings *EngineSettings) {
	if s == nil || s.db == nil {
		return
	}

	data, err := json.Marshal(settings)
	if err != nil {
		log.Printf("[config] failed to marshal engine settings: %v", err)
		return
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyEngineSettings), data)
	})
	if err != nil {
		log.Printf("[config] failed to save engine settings: %v", err)
	}
}

// SetUseNNUE persists a single-field update without requiring the caller to
// round-trip the full settings struct.
func (s *Store) SetUseNNUE(use bool) {
	if s == nil || s.db == nil {
		return
	}
	settings := s.LoadEngineSettings()
	settings.UseNNUE = use
	s.SaveEngineSettings(settings)
}

// LoadBookStats loads persisted book usage statistics, or an empty struct.
func (s *Store) LoadBookStats() *BookStats {
	stats := &BookStats{}
	if s == nil || s.db == nil {
		return stats
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyBookStats))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})
	if err != nil {
		log.Printf("[config] failed to load book stats: %v", err)
		return &BookStats{}
	}

	return stats
}

// RecordBookProbe updates and persists book hit/miss statistics.
func (s *Store) RecordBookProbe(hit bool) {
	if s == nil || s.db == nil {
		return
	}

	stats := s.LoadBookStats()
	if hit {
		stats.ProbesHit++
	} else {
		stats.ProbesMiss++
	}

	data, err := json.Marshal(stats)
	if err != nil {
		log.Printf("[config] failed to marshal book stats: %v", err)
		return
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyBookStats), data)
	})
	if err != nil {
		log.Printf("[config] failed to save book stats: %v", err)
	}
}
