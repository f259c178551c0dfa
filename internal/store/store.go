package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muhasabah-app/profilesync/internal/crypto"
	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	"github.com/muhasabah-app/profilesync/internal/profile"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// publicProfileRow caches the public profile document as JSON.
type publicProfileRow struct {
	UserID    string `gorm:"primaryKey"`
	Document  string
	UpdatedAt time.Time
}

// encryptedBlobRow caches the encrypted private blob. The plaintext private
// profile is never written to this table or any other.
type encryptedBlobRow struct {
	UserID     string `gorm:"primaryKey"`
	Ciphertext string
	IV         string
	Version    int64
	UpdatedAt  time.Time
}

// syncMetadataRow persists per-user sync metadata as JSON.
type syncMetadataRow struct {
	UserID   string `gorm:"primaryKey"`
	Document string
}

// keyRecordRow persists the exported form of the per-user symmetric key.
type keyRecordRow struct {
	UserID string `gorm:"primaryKey"`
	Key    []byte
}

// Store is the local persistent cache of profile state, keyed by user id.
// Decrypted private profiles live in memory only.
type Store struct {
	db *gorm.DB

	mu        sync.RWMutex
	plaintext map[string]*profile.PrivateProfile
	closed    bool
}

// Open opens (creating if needed) the sqlite-backed store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if err := db.AutoMigrate(&publicProfileRow{}, &encryptedBlobRow{}, &syncMetadataRow{}, &keyRecordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	return &Store{
		db:        db,
		plaintext: make(map[string]*profile.PrivateProfile),
	}, nil
}

// GetPublicProfile returns the cached public profile, or ErrProfileNotFound.
func (s *Store) GetPublicProfile(userID string) (*profile.PublicProfile, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var row publicProfileRow
	if err := s.db.First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, perrors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read public profile: %w", err)
	}

	var pub profile.PublicProfile
	if err := json.Unmarshal([]byte(row.Document), &pub); err != nil {
		return nil, fmt.Errorf("cached public profile is corrupt: %w", err)
	}
	return &pub, nil
}

// PutPublicProfile caches the public profile.
func (s *Store) PutPublicProfile(pub *profile.PublicProfile) error {
	if err := s.check(); err != nil {
		return err
	}

	document, err := json.Marshal(pub)
	if err != nil {
		return fmt.Errorf("failed to marshal public profile: %w", err)
	}
	row := publicProfileRow{UserID: pub.UserID, Document: string(document), UpdatedAt: time.Now().UTC()}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write public profile: %w", err)
	}
	return nil
}

// GetEncryptedBlob returns the cached blob, or nil when none is cached.
func (s *Store) GetEncryptedBlob(userID string) (*crypto.EncryptedBlob, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var row encryptedBlobRow
	if err := s.db.First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read encrypted blob: %w", err)
	}
	return &crypto.EncryptedBlob{Ciphertext: row.Ciphertext, IV: row.IV, Version: row.Version}, nil
}

// PutEncryptedBlob caches the encrypted private blob.
func (s *Store) PutEncryptedBlob(userID string, blob *crypto.EncryptedBlob) error {
	if err := s.check(); err != nil {
		return err
	}

	row := encryptedBlobRow{
		UserID:     userID,
		Ciphertext: blob.Ciphertext,
		IV:         blob.IV,
		Version:    blob.Version,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write encrypted blob: %w", err)
	}
	return nil
}

// GetSyncMetadata returns the user's sync metadata, creating it (with a
// fresh stable device id) on first use.
func (s *Store) GetSyncMetadata(userID string) (*profile.SyncMetadata, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var row syncMetadataRow
	err := s.db.First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		meta := &profile.SyncMetadata{
			UserID:   userID,
			DeviceID: uuid.NewString(),
		}
		if err := s.PutSyncMetadata(meta); err != nil {
			return nil, err
		}
		return meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	var meta profile.SyncMetadata
	if err := json.Unmarshal([]byte(row.Document), &meta); err != nil {
		return nil, fmt.Errorf("cached sync metadata is corrupt: %w", err)
	}
	return &meta, nil
}

// PutSyncMetadata persists the user's sync metadata.
func (s *Store) PutSyncMetadata(meta *profile.SyncMetadata) error {
	if err := s.check(); err != nil {
		return err
	}

	document, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal sync metadata: %w", err)
	}
	row := syncMetadataRow{UserID: meta.UserID, Document: string(document)}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write sync metadata: %w", err)
	}
	return nil
}

// GetPrivateProfile returns the in-memory decrypted private profile, or nil.
// The caller gets its own deep copy; the periodic sync goroutine may be
// writing the cached document concurrently.
func (s *Store) GetPrivateProfile(userID string) *profile.PrivateProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plaintext[userID].Clone()
}

// PutPrivateProfile caches the decrypted private profile in memory only.
// The store keeps its own copy, detached from the caller's pointer.
func (s *Store) PutPrivateProfile(userID string, priv *profile.PrivateProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.plaintext[userID] = priv.Clone()
}

// GetKeyRecord implements keys.Keyring.
func (s *Store) GetKeyRecord(userID string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var row keyRecordRow
	if err := s.db.First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, perrors.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key record: %w", err)
	}
	return row.Key, nil
}

// PutKeyRecord implements keys.Keyring.
func (s *Store) PutKeyRecord(userID string, key []byte) error {
	if err := s.check(); err != nil {
		return err
	}

	row := keyRecordRow{UserID: userID, Key: key}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write key record: %w", err)
	}
	return nil
}

// DeleteKeyRecord implements keys.Keyring.
func (s *Store) DeleteKeyRecord(userID string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.db.Delete(&keyRecordRow{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete key record: %w", err)
	}
	return nil
}

// Purge removes every trace of a user from the local cache: profile, blob,
// metadata, key material and in-memory plaintext. Used by reset and logout.
func (s *Store) Purge(userID string) error {
	if err := s.check(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.plaintext, userID)
	s.mu.Unlock()

	for _, model := range []any{&publicProfileRow{}, &encryptedBlobRow{}, &syncMetadataRow{}, &keyRecordRow{}} {
		if err := s.db.Delete(model, "user_id = ?", userID).Error; err != nil {
			return fmt.Errorf("failed to purge user %s: %w", userID, err)
		}
	}
	return nil
}

// ClearPlaintext drops all in-memory decrypted private profiles without
// touching persisted state. Used on logout.
func (s *Store) ClearPlaintext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plaintext = make(map[string]*profile.PrivateProfile)
}

// Close releases the store. Further calls return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.plaintext = make(map[string]*profile.PrivateProfile)

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying database: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return perrors.ErrStoreClosed
	}
	return nil
}
