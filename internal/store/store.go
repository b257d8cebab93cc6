// Package store owns the durable state file: the operator settings and the
// last pipeline snapshot. It is the single writer for both records and fans
// out change notifications to subscribed collaborators.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"pipewatch/internal/models"
	"pipewatch/internal/secrets"
	"pipewatch/pkg/log"
)

// Record names the two logical records held by the store.
type Record string

const (
	RecordSettings Record = "settings"
	RecordSnapshot Record = "pipelineStatus"
)

// Listener receives the record name and its new value after every
// successful write.
type Listener func(record Record, value any)

type stateFile struct {
	Settings       *models.Settings     `json:"settings,omitempty"`
	PipelineStatus *models.SyncSnapshot `json:"pipelineStatus,omitempty"`
}

type Store struct {
	path      string
	logger    zerolog.Logger
	mu        sync.Mutex
	subMu     sync.RWMutex
	listeners []Listener
}

func New(path string) *Store {
	return &Store{
		path:   path,
		logger: log.Logger.With().Str("component", "store").Logger(),
	}
}

// Subscribe registers a listener for record changes. Listeners run on the
// writer's goroutine after the write has been persisted, outside the store
// lock, and must not block for long.
func (s *Store) Subscribe(fn Listener) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// GetSettings returns the stored settings merged over defaults, with the
// secret access key decrypted. A missing state file yields pure defaults.
func (s *Store) GetSettings() (models.Settings, error) {
	s.mu.Lock()
	state, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return models.Settings{}, err
	}

	settings := models.Settings{
		Region:            models.DefaultRegion,
		RefreshIntervalMs: models.DefaultRefreshIntervalMs,
	}
	if state.Settings != nil {
		stored := *state.Settings
		if stored.Region == "" {
			stored.Region = settings.Region
		}
		if stored.RefreshIntervalMs == 0 {
			stored.RefreshIntervalMs = settings.RefreshIntervalMs
		}
		settings = stored
	}

	plaintext, err := secrets.Decrypt(settings.SecretAccessKey)
	if err != nil {
		return models.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	settings.SecretAccessKey = plaintext

	return settings, nil
}

// SaveSettings encrypts the secret access key and replaces the settings
// record.
func (s *Store) SaveSettings(settings models.Settings) error {
	ciphertext, err := secrets.Encrypt(settings.SecretAccessKey)
	if err != nil {
		return fmt.Errorf("encrypting secret access key: %w", err)
	}
	stored := settings
	stored.SecretAccessKey = ciphertext

	s.mu.Lock()
	state, err := s.load()
	if err == nil {
		state.Settings = &stored
		err = s.persist(state)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debug().Msg("Settings saved")
	s.notify(RecordSettings, settings)
	return nil
}

// GetSnapshot returns the last persisted snapshot, or nil when no cycle has
// completed yet.
func (s *Store) GetSnapshot() (*models.SyncSnapshot, error) {
	s.mu.Lock()
	state, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return state.PipelineStatus, nil
}

// SaveSnapshot replaces the snapshot record.
func (s *Store) SaveSnapshot(snapshot models.SyncSnapshot) error {
	s.mu.Lock()
	state, err := s.load()
	if err == nil {
		state.PipelineStatus = &snapshot
		err = s.persist(state)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(RecordSnapshot, snapshot)
	return nil
}

func (s *Store) load() (*stateFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &stateFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return &state, nil
}

func (s *Store) persist(state *stateFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

func (s *Store) notify(record Record, value any) {
	s.subMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.subMu.RUnlock()

	for _, fn := range listeners {
		fn(record, value)
	}
}
