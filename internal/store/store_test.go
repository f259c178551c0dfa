package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/muhasabah-app/profilesync/internal/crypto"
	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	"github.com/muhasabah-app/profilesync/internal/profile"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func testPublicProfile(userID string, version int64) *profile.PublicProfile {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &profile.PublicProfile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   version,
		GeneralPreferences: profile.GeneralPreferences{
			InputMethod:         "text",
			ReflectionFrequency: "daily",
			Language:            "en",
		},
		PrivacySettings: profile.PrivacySettings{AllowPersonalization: true, EnableSync: true},
	}
}

func TestPublicProfileRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)

	if _, err := s.GetPublicProfile("user-1"); !errors.Is(err, perrors.ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound before put, got %v", err)
	}

	pub := testPublicProfile("user-1", 2)
	if err := s.PutPublicProfile(pub); err != nil {
		t.Fatalf("PutPublicProfile failed: %v", err)
	}

	got, err := s.GetPublicProfile("user-1")
	if err != nil {
		t.Fatalf("GetPublicProfile failed: %v", err)
	}
	if got.Version != 2 || got.GeneralPreferences.Language != "en" {
		t.Errorf("Round trip mismatch: %+v", got)
	}

	// Overwrite replaces rather than duplicates.
	pub.Version = 5
	pub.GeneralPreferences.Language = "ar"
	if err := s.PutPublicProfile(pub); err != nil {
		t.Fatalf("PutPublicProfile overwrite failed: %v", err)
	}
	got, err = s.GetPublicProfile("user-1")
	if err != nil {
		t.Fatalf("GetPublicProfile failed: %v", err)
	}
	if got.Version != 5 || got.GeneralPreferences.Language != "ar" {
		t.Errorf("Expected overwritten profile, got %+v", got)
	}
}

func TestEncryptedBlobRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)

	blob, err := s.GetEncryptedBlob("user-1")
	if err != nil || blob != nil {
		t.Fatalf("Expected (nil, nil) before put, got (%v, %v)", blob, err)
	}

	in := &crypto.EncryptedBlob{Ciphertext: "Y2lwaGVy", IV: "bm9uY2U=", Version: 4}
	if err := s.PutEncryptedBlob("user-1", in); err != nil {
		t.Fatalf("PutEncryptedBlob failed: %v", err)
	}

	got, err := s.GetEncryptedBlob("user-1")
	if err != nil {
		t.Fatalf("GetEncryptedBlob failed: %v", err)
	}
	if got == nil || got.Ciphertext != in.Ciphertext || got.IV != in.IV || got.Version != 4 {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestSyncMetadata(t *testing.T) {
	s, _ := openTestStore(t)

	meta, err := s.GetSyncMetadata("user-1")
	if err != nil {
		t.Fatalf("GetSyncMetadata failed: %v", err)
	}
	if meta.UserID != "user-1" || meta.DeviceID == "" {
		t.Fatalf("Expected lazily created metadata with a device id, got %+v", meta)
	}

	// The device id is stable across reads.
	again, err := s.GetSyncMetadata("user-1")
	if err != nil {
		t.Fatalf("GetSyncMetadata failed: %v", err)
	}
	if again.DeviceID != meta.DeviceID {
		t.Errorf("Device id changed between reads: %q vs %q", meta.DeviceID, again.DeviceID)
	}

	meta.PublicVersion = 3
	meta.PrivateVersion = 7
	meta.LastSyncTime = time.Now().UTC()
	if err := s.PutSyncMetadata(meta); err != nil {
		t.Fatalf("PutSyncMetadata failed: %v", err)
	}

	got, err := s.GetSyncMetadata("user-1")
	if err != nil {
		t.Fatalf("GetSyncMetadata failed: %v", err)
	}
	if got.PublicVersion != 3 || got.PrivateVersion != 7 {
		t.Errorf("Expected persisted versions, got %+v", got)
	}
}

func TestPrivateProfileCopiesAreIndependent(t *testing.T) {
	s, _ := openTestStore(t)

	priv := &profile.PrivateProfile{
		Version:             1,
		SpiritualAttributes: map[string]string{"focus": "patience"},
	}
	s.PutPrivateProfile("user-1", priv)

	// Mutating the caller's document after the put must not reach the cache.
	priv.Version = 99
	priv.SpiritualAttributes["focus"] = "changed"

	got := s.GetPrivateProfile("user-1")
	if got == nil {
		t.Fatal("Expected a cached private profile")
	}
	if got.Version != 1 {
		t.Errorf("Cache saw the caller's mutation: version %d", got.Version)
	}
	if got.SpiritualAttributes["focus"] != "patience" {
		t.Errorf("Cache saw the caller's map mutation: %q", got.SpiritualAttributes["focus"])
	}

	// Mutating a returned document must not affect subsequent reads.
	got.Version = 42
	got.RecordInteraction("gratitude", "verse", time.Now())

	again := s.GetPrivateProfile("user-1")
	if again.Version != 1 {
		t.Errorf("A returned copy leaked back into the cache: version %d", again.Version)
	}
	if len(again.RecentInteractions) != 0 || again.DynamicAttributes != nil {
		t.Errorf("A returned copy shares state with the cache: %+v", again)
	}
}

func TestPrivateProfileIsMemoryOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	priv := &profile.PrivateProfile{Version: 2, KnowledgeLevel: "beginner"}
	s.PutPrivateProfile("user-1", priv)
	if err := s.PutEncryptedBlob("user-1", &crypto.EncryptedBlob{Ciphertext: "Yw==", IV: "aXY=", Version: 2}); err != nil {
		t.Fatalf("PutEncryptedBlob failed: %v", err)
	}

	if got := s.GetPrivateProfile("user-1"); got == nil || got.Version != 2 {
		t.Fatalf("Expected in-memory private profile, got %+v", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Plaintext never survives a restart; the encrypted blob does.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	if got := reopened.GetPrivateProfile("user-1"); got != nil {
		t.Errorf("Expected plaintext gone after reopen, got %+v", got)
	}
	blob, err := reopened.GetEncryptedBlob("user-1")
	if err != nil || blob == nil {
		t.Errorf("Expected encrypted blob to persist, got (%v, %v)", blob, err)
	}
}

func TestKeyring(t *testing.T) {
	s, _ := openTestStore(t)

	if _, err := s.GetKeyRecord("user-1"); !errors.Is(err, perrors.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound before put, got %v", err)
	}

	key := bytes.Repeat([]byte{0x7f}, crypto.KeySize)
	if err := s.PutKeyRecord("user-1", key); err != nil {
		t.Fatalf("PutKeyRecord failed: %v", err)
	}

	got, err := s.GetKeyRecord("user-1")
	if err != nil {
		t.Fatalf("GetKeyRecord failed: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("Key record round trip mismatch")
	}

	if err := s.DeleteKeyRecord("user-1"); err != nil {
		t.Fatalf("DeleteKeyRecord failed: %v", err)
	}
	if _, err := s.GetKeyRecord("user-1"); !errors.Is(err, perrors.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestPurge(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.PutPublicProfile(testPublicProfile("user-1", 1)); err != nil {
		t.Fatalf("PutPublicProfile failed: %v", err)
	}
	if err := s.PutEncryptedBlob("user-1", &crypto.EncryptedBlob{Ciphertext: "Yw==", IV: "aXY=", Version: 1}); err != nil {
		t.Fatalf("PutEncryptedBlob failed: %v", err)
	}
	if _, err := s.GetSyncMetadata("user-1"); err != nil {
		t.Fatalf("GetSyncMetadata failed: %v", err)
	}
	if err := s.PutKeyRecord("user-1", bytes.Repeat([]byte{0x01}, crypto.KeySize)); err != nil {
		t.Fatalf("PutKeyRecord failed: %v", err)
	}
	s.PutPrivateProfile("user-1", &profile.PrivateProfile{Version: 1})

	// Another user's state must survive the purge.
	if err := s.PutPublicProfile(testPublicProfile("user-2", 1)); err != nil {
		t.Fatalf("PutPublicProfile failed: %v", err)
	}

	if err := s.Purge("user-1"); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	if _, err := s.GetPublicProfile("user-1"); !errors.Is(err, perrors.ErrProfileNotFound) {
		t.Errorf("Expected public profile purged, got %v", err)
	}
	if blob, _ := s.GetEncryptedBlob("user-1"); blob != nil {
		t.Error("Expected encrypted blob purged")
	}
	if _, err := s.GetKeyRecord("user-1"); !errors.Is(err, perrors.ErrKeyNotFound) {
		t.Errorf("Expected key record purged, got %v", err)
	}
	if priv := s.GetPrivateProfile("user-1"); priv != nil {
		t.Error("Expected plaintext purged")
	}
	if _, err := s.GetPublicProfile("user-2"); err != nil {
		t.Errorf("Expected other user untouched, got %v", err)
	}
}

func TestClearPlaintext(t *testing.T) {
	s, _ := openTestStore(t)

	s.PutPrivateProfile("user-1", &profile.PrivateProfile{Version: 1})
	s.PutPrivateProfile("user-2", &profile.PrivateProfile{Version: 1})
	s.ClearPlaintext()

	if s.GetPrivateProfile("user-1") != nil || s.GetPrivateProfile("user-2") != nil {
		t.Error("Expected all plaintext cleared")
	}
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.GetPublicProfile("user-1"); !errors.Is(err, perrors.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
	if err := s.PutPublicProfile(testPublicProfile("user-1", 1)); !errors.Is(err, perrors.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
}
