package keys

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/muhasabah-app/profilesync/internal/crypto"
	perrors "github.com/muhasabah-app/profilesync/internal/errors"
)

// Keyring persists exported key material scoped by user id. Implemented by
// the local profile store.
type Keyring interface {
	// GetKeyRecord returns the stored key bytes for a user, or
	// ErrKeyNotFound when no record exists.
	GetKeyRecord(userID string) ([]byte, error)

	// PutKeyRecord stores key bytes for a user, replacing any existing record.
	PutKeyRecord(userID string, key []byte) error

	// DeleteKeyRecord removes a user's key record.
	DeleteKeyRecord(userID string) error
}

// Manager owns the per-user symmetric key lifecycle. The key never leaves
// the device except through ExportForBackup.
type Manager struct {
	ring Keyring
}

// NewManager builds a key manager over a keyring.
func NewManager(ring Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetOrCreateKey returns the user's 256-bit key, generating and persisting
// one on first use. A corrupt or unreadable record yields ErrKeyUnavailable:
// existing private data cannot be decrypted, which is different from no
// private data existing.
func (m *Manager) GetOrCreateKey(userID string) ([]byte, error) {
	stored, err := m.ring.GetKeyRecord(userID)
	switch {
	case err == nil:
		if len(stored) != crypto.KeySize {
			return nil, fmt.Errorf("stored key for %s is corrupt: %w", userID, perrors.ErrKeyUnavailable)
		}
		return stored, nil
	case errors.Is(err, perrors.ErrKeyNotFound):
		return m.createKey(userID)
	default:
		return nil, fmt.Errorf("failed to load key for %s: %w", userID, perrors.ErrKeyUnavailable)
	}
}

// ImportKey persists externally obtained key material (e.g. from a backup
// envelope) as the user's key.
func (m *Manager) ImportKey(userID string, key []byte) error {
	if len(key) != crypto.KeySize {
		return fmt.Errorf("expected %d-byte key, got %d: %w", crypto.KeySize, len(key), perrors.ErrInvalidKeyLength)
	}
	if err := m.ring.PutKeyRecord(userID, key); err != nil {
		return fmt.Errorf("failed to persist imported key: %w", err)
	}
	return nil
}

// DeleteKey removes the user's key material. Used on reset and logout.
func (m *Manager) DeleteKey(userID string) error {
	if err := m.ring.DeleteKeyRecord(userID); err != nil && !errors.Is(err, perrors.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key for %s: %w", userID, err)
	}
	return nil
}

func (m *Manager) createKey(userID string) ([]byte, error) {
	key := make([]byte, crypto.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := m.ring.PutKeyRecord(userID, key); err != nil {
		return nil, fmt.Errorf("failed to persist new key: %w", err)
	}
	return key, nil
}
