package theme

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/services"
)

// DefaultStorageKey is the key the preference is persisted under.
const DefaultStorageKey = "sport-events-theme"

// ErrStorageUnavailable is returned by storage that cannot be used at all,
// e.g. a disabled or unopened backing store.
var ErrStorageUnavailable = errors.New("theme storage unavailable")

// Storage is a string key/value store. Implementations may fail freely;
// the controller swallows every error.
type Storage interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
	// Remove forgets key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// SettingsStorage persists the preference in the local settings table.
type SettingsStorage struct {
	repo services.SettingsRepository
}

// Compile-time interface guard.
var _ Storage = (*SettingsStorage)(nil)

// NewSettingsStorage adapts a SettingsRepository. A nil repo behaves as
// unavailable storage.
func NewSettingsStorage(repo services.SettingsRepository) *SettingsStorage {
	return &SettingsStorage{repo: repo}
}

func (s *SettingsStorage) Load(ctx context.Context, key string) (string, error) {
	if s == nil || s.repo == nil {
		return "", ErrStorageUnavailable
	}
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *SettingsStorage) Save(ctx context.Context, key, value string) error {
	if s == nil || s.repo == nil {
		return ErrStorageUnavailable
	}
	return s.repo.Set(ctx, key, value)
}

func (s *SettingsStorage) Remove(ctx context.Context, key string) error {
	if s == nil || s.repo == nil {
		return ErrStorageUnavailable
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, services.ErrNotFound) {
		return err
	}
	return nil
}

// MemoryStorage keeps values in process memory. Setting Unavailable makes
// every call fail, which is how tests model disabled storage.
type MemoryStorage struct {
	mu          sync.Mutex
	values      map[string]string
	Unavailable bool
}

// Compile-time interface guard.
var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return "", ErrStorageUnavailable
	}
	v, ok := m.values[key]
	if !ok {
		return "", services.ErrNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return ErrStorageUnavailable
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return ErrStorageUnavailable
	}
	delete(m.values, key)
	return nil
}

// loadPreference reads and normalizes the stored preference. Any failure
// yields DefaultPreference.
func loadPreference(ctx context.Context, s Storage, key string, logger *zap.Logger) Preference {
	if s == nil {
		return DefaultPreference
	}
	raw, err := s.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			logger.Debug("theme preference unreadable, using default",
				zap.String("key", key), zap.Error(err))
		}
		return DefaultPreference
	}
	pref, ok := ParsePreference(raw)
	if !ok {
		logger.Debug("ignoring corrupt theme preference",
			zap.String("key", key), zap.String("value", raw))
	}
	return pref
}

// forgetPreference drops the stored preference, logging any failure.
func forgetPreference(ctx context.Context, s Storage, key string, logger *zap.Logger) {
	if s == nil {
		return
	}
	if err := s.Remove(ctx, key); err != nil {
		logger.Warn("theme preference not cleared",
			zap.String("key", key), zap.Error(err))
	}
}

// savePreference persists pref, logging and dropping any failure.
func savePreference(ctx context.Context, s Storage, key string, pref Preference, logger *zap.Logger) {
	if s == nil {
		return
	}
	if err := s.Save(ctx, key, string(pref)); err != nil {
		logger.Warn("theme preference not persisted",
			zap.String("key", key), zap.Error(err))
	}
}
